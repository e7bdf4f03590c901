package domain

import "time"

// Listing is a classified advertisement ("anuncio"). Listings are append-only:
// once persisted they are never updated in place.
type Listing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ForSale   bool      `json:"forSale"`
	Tags      []string  `json:"tags"`
	Photo     *string   `json:"photo,omitempty"` // stored filename, nil when the listing has no photo
	CreatedAt time.Time `json:"createdAt"`
}

// HasPhoto reports whether the listing references a stored image.
func (l *Listing) HasPhoto() bool {
	return l.Photo != nil && *l.Photo != ""
}

// Tag is read-only reference data used by clients to build tag filters.
type Tag struct {
	Name string `json:"name"`
}

// IngestedImage is the transient result of the media ingestion pipeline.
// Only StoredFilename outlives the request, as Listing.Photo.
type IngestedImage struct {
	OriginalMimeType string
	StoredFilename   string
	Width            int
	Height           int
	Data             []byte
}
