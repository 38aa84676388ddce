package embyclient

// SystemInfo from GET /System/Info.
type SystemInfo struct {
	ServerName      string `json:"ServerName"`
	Version         string `json:"Version"`
	ID              string `json:"Id"`
	OperatingSystem string `json:"OperatingSystem"`
}

// ProviderIDs mirrors Emby's ProviderIds bag, narrowed to the three
// providers the identity map tracks.
type ProviderIDs struct {
	Tmdb   string `json:"Tmdb,omitempty"`
	Imdb   string `json:"Imdb,omitempty"`
	Douban string `json:"Douban,omitempty"`
}

// Person is one entry of Item.People — a cast or crew credit as Emby
// represents it on an item.
type Person struct {
	ID            string      `json:"Id"`
	Name          string      `json:"Name"`
	OriginalName  string      `json:"OriginalName,omitempty"`
	Role          string      `json:"Role,omitempty"`
	Type          string      `json:"Type"`
	ProviderIDs   ProviderIDs `json:"ProviderIds,omitempty"`
	SortOrder     int         `json:"SortOrder,omitempty"`
	PrimaryImageTag string    `json:"PrimaryImageTag,omitempty"`
}

// Item is the GetItemDetails response shape: enough of
// Emby's item schema for identity reconciliation and cast display.
type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"` // Movie, Series, Episode, Season
	ProductionYear int               `json:"ProductionYear"`
	Genres         []string          `json:"Genres"`
	ProviderIDs    ProviderIDs       `json:"ProviderIds"`
	People         []Person          `json:"People"`
	ImageTags      map[string]string `json:"ImageTags"`
	ParentID       string            `json:"ParentId,omitempty"`
	SeriesID       string            `json:"SeriesId,omitempty"`
	SeriesName     string            `json:"SeriesName,omitempty"`
	Path           string            `json:"Path,omitempty"`
}

// ItemsResponse from GET /Items.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// CastRecord is the wire shape UpdateItemCast writes, matching the
// persisted override JSON's cast record fields
type CastRecord struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	OriginalName        string `json:"original_name"`
	Character           string `json:"character"`
	Order               int    `json:"order"`
	Adult               bool   `json:"adult"`
	Gender              int    `json:"gender"`
	KnownForDepartment  string `json:"known_for_department"`
	Popularity          float64 `json:"popularity"`
	ProfilePath         string `json:"profile_path"`
	CastID              int    `json:"cast_id"`
	CreditID            string `json:"credit_id"`
}

// ImageKind enumerates the image types DownloadImage and the webhook
// router's image-updated path care about.
type ImageKind string

const (
	ImageKindPrimary  ImageKind = "Primary"
	ImageKindBackdrop ImageKind = "Backdrop"
	ImageKindLogo     ImageKind = "Logo"
	ImageKindThumb    ImageKind = "Thumb"
)

// Collection is a created/updated Emby BoxSet.
type Collection struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}
