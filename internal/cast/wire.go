package cast

import "github.com/hbq0405/emby-actor-processor/internal/embyclient"

// ToEmbyCastRecord converts a finalized Record to the wire shape
// UpdateItemCast sends back to the media server, keyed by the emby
// person id so the server links the credit to the existing person
// entity instead of creating a new one.
func (r Record) ToEmbyCastRecord() embyclient.CastRecord {
	return embyclient.CastRecord{
		ID:                 r.EmbyID,
		Name:               r.Name,
		OriginalName:       r.OriginalName,
		Character:          r.Character,
		Order:              r.Order,
		Adult:              r.Adult,
		Gender:             r.Gender,
		KnownForDepartment: r.KnownForDept,
		Popularity:         r.Popularity,
		ProfilePath:        r.ProfilePath,
		CastID:             r.CastID,
		CreditID:           r.CreditID,
	}
}

// ToOverrideCastRecord converts a finalized Record to the TMDb-shaped
// record persisted into the side-load cache JSON keyed by
// TMDb person id to match the rest of that file's schema.
func (r Record) ToOverrideCastRecord() embyclient.CastRecord {
	rec := r.ToEmbyCastRecord()
	rec.ID = r.TMDbID
	return rec
}

// ToEmbyCastRecords/ToOverrideCastRecords convert a whole result slice.
func ToEmbyCastRecords(records []Record) []embyclient.CastRecord {
	out := make([]embyclient.CastRecord, len(records))
	for i, r := range records {
		out[i] = r.ToEmbyCastRecord()
	}
	return out
}

func ToOverrideCastRecords(records []Record) []embyclient.CastRecord {
	out := make([]embyclient.CastRecord, len(records))
	for i, r := range records {
		out[i] = r.ToOverrideCastRecord()
	}
	return out
}
