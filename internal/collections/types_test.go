package collections

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/database"
)

func sampleMedia() database.MediaMetadata {
	return database.MediaMetadata{
		TMDbID:    1,
		ItemType:  "Movie",
		Title:     "Dune",
		Year:      2021,
		Rating:    8.1,
		Genres:    []string{"Science Fiction", "Adventure"},
		Actors:    []string{"Timothée Chalamet"},
		Directors: []string{"Denis Villeneuve"},
		Studios:   []string{"Legendary Pictures"},
		Countries: []string{"US"},
	}
}

func TestPredicate_LeafFieldMatch(t *testing.T) {
	m := sampleMedia()
	require.True(t, Predicate{Field: "genre", Value: "science fiction"}.Match(m))
	require.False(t, Predicate{Field: "genre", Value: "horror"}.Match(m))
	require.True(t, Predicate{Field: "director", Value: "Denis Villeneuve"}.Match(m))
	require.True(t, Predicate{Field: "year_gte", Value: "2020"}.Match(m))
	require.False(t, Predicate{Field: "year_gte", Value: "2022"}.Match(m))
	require.True(t, Predicate{Field: "rating_lte", Value: "9"}.Match(m))
}

func TestPredicate_AllRequiresEveryChild(t *testing.T) {
	m := sampleMedia()
	p := Predicate{All: []Predicate{
		{Field: "genre", Value: "Adventure"},
		{Field: "year_gte", Value: "2021"},
	}}
	require.True(t, p.Match(m))

	p2 := Predicate{All: []Predicate{
		{Field: "genre", Value: "Adventure"},
		{Field: "year_gte", Value: "2022"},
	}}
	require.False(t, p2.Match(m))
}

func TestPredicate_AnyRequiresOneChild(t *testing.T) {
	m := sampleMedia()
	p := Predicate{Any: []Predicate{
		{Field: "genre", Value: "Horror"},
		{Field: "genre", Value: "Adventure"},
	}}
	require.True(t, p.Match(m))
}

func TestPredicate_NotInverts(t *testing.T) {
	m := sampleMedia()
	inner := Predicate{Field: "genre", Value: "Horror"}
	require.True(t, Predicate{Not: &inner}.Match(m))
}

func TestPredicate_UnknownFieldNeverMatches(t *testing.T) {
	m := sampleMedia()
	require.False(t, Predicate{Field: "nonsense", Value: "x"}.Match(m))
}
