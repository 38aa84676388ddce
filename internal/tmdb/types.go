package tmdb

// ExternalIDs mirrors TMDb's /person/{id}/external_ids append shape.
type ExternalIDs struct {
	IMDbID     string `json:"imdb_id"`
	FacebookID string `json:"facebook_id"`
	TwitterID  string `json:"twitter_id"`
}

// AlsoKnownAs is the append_to_response shape for alternate names.
type AlsoKnownAs struct {
	Results []string `json:"also_known_as"`
}

// Person is a TMDb person-details response, optionally carrying
// external_ids/also_known_as when requested via append_to_response.
type Person struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	AlsoKnownAs      []string     `json:"also_known_as"`
	Biography        string       `json:"biography"`
	Gender           int          `json:"gender"`
	KnownForDept     string       `json:"known_for_department"`
	Popularity       float64      `json:"popularity"`
	ProfilePath      string       `json:"profile_path"`
	ExternalIDs      *ExternalIDs `json:"external_ids,omitempty"`
}

// PersonSearchResult is one hit of /search/person.
type PersonSearchResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Popularity  float64 `json:"popularity"`
	ProfilePath string  `json:"profile_path"`
}

type personSearchResponse struct {
	Page    int                  `json:"page"`
	Results []PersonSearchResult `json:"results"`
}

// CastMember is one element of a movie/tv credits.cast array.
type CastMember struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	OriginalName       string  `json:"original_name"`
	Character          string  `json:"character"`
	Order              int     `json:"order"`
	Adult              bool    `json:"adult"`
	Gender             int     `json:"gender"`
	KnownForDepartment string  `json:"known_for_department"`
	Popularity         float64 `json:"popularity"`
	ProfilePath        string  `json:"profile_path"`
	CastID             int64   `json:"cast_id"`
	CreditID           string  `json:"credit_id"`
}

// CrewMember is one element of a movie/tv credits.crew array.
type CrewMember struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

type credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// NamedEntity covers both production_companies and production_countries,
// the only field TMDb's schema shares between the two: {name}.
type NamedEntity struct {
	Name string `json:"name"`
}

// MovieDetails is a TMDb movie-details response with credits appended.
// vote_average, production_companies and production_countries all come
// back on the plain /movie/{id} response with no extra append_to_response
// entry needed.
type MovieDetails struct {
	ID                  int64         `json:"id"`
	Title               string        `json:"title"`
	ReleaseDate         string        `json:"release_date"`
	VoteAverage         float64       `json:"vote_average"`
	Genres              []Genre       `json:"genres"`
	ProductionCompanies []NamedEntity `json:"production_companies"`
	ProductionCountries []NamedEntity `json:"production_countries"`
	Credits             credits       `json:"credits"`
}

// TvDetails is a TMDb tv-details response with credits appended.
type TvDetails struct {
	ID                  int64         `json:"id"`
	Name                string        `json:"name"`
	FirstAirDate        string        `json:"first_air_date"`
	VoteAverage         float64       `json:"vote_average"`
	Genres              []Genre       `json:"genres"`
	ProductionCompanies []NamedEntity `json:"production_companies"`
	ProductionCountries []NamedEntity `json:"production_countries"`
	Credits             credits       `json:"credits"`
}

// Genre is a TMDb genre object.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directors returns the names of crew members with job "Director".
func (m MovieDetails) Directors() []string { return directorsOf(m.Credits.Crew) }
func (t TvDetails) Directors() []string    { return directorsOf(t.Credits.Crew) }

func directorsOf(crew []CrewMember) []string {
	var out []string
	for _, c := range crew {
		if c.Job == "Director" {
			out = append(out, c.Name)
		}
	}
	return out
}

// Studios returns production company names.
func (m MovieDetails) Studios() []string { return namesOf(m.ProductionCompanies) }
func (t TvDetails) Studios() []string    { return namesOf(t.ProductionCompanies) }

// Countries returns production country names.
func (m MovieDetails) Countries() []string { return namesOf(m.ProductionCountries) }
func (t TvDetails) Countries() []string    { return namesOf(t.ProductionCountries) }

func namesOf(entities []NamedEntity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

// CollectionDetails is a TMDb collection-details response.
type CollectionDetails struct {
	ID    int64 `json:"id"`
	Name  string `json:"name"`
	Parts []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
	} `json:"parts"`
}

// Cast returns the credits.cast array, whichever underlying field it
// came from (movie or tv details share the shape).
func (m MovieDetails) Cast() []CastMember { return m.Credits.Cast }
func (t TvDetails) Cast() []CastMember    { return t.Credits.Cast }

// CombinedCreditsEntry is one entry of /person/{id}/combined_credits,
// used by the actor-tracking task to notice a subscribed actor's new
// movie or series credits.
type CombinedCreditsEntry struct {
	ID           int64  `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

func (e CombinedCreditsEntry) displayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// DisplayTitle returns the movie title or series name, whichever the
// entry carries.
func (e CombinedCreditsEntry) DisplayTitle() string { return e.displayTitle() }

// Date returns release_date (movie) or first_air_date (tv), whichever
// the entry carries.
func (e CombinedCreditsEntry) Date() string {
	if e.ReleaseDate != "" {
		return e.ReleaseDate
	}
	return e.FirstAirDate
}

type combinedCreditsResponse struct {
	Cast []CombinedCreditsEntry `json:"cast"`
}
