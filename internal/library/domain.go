package library

import "time"

// Kind separates the two media libraries, each behind its own capability.
type Kind string

const (
	KindFile  Kind = "file"
	KindImage Kind = "image"
)

// Valid reports whether the kind is one of the known libraries.
func (k Kind) Valid() bool {
	return k == KindFile || k == KindImage
}

// Group buckets library items for browsing. Group 0 is the implicit
// "all" group and never exists as a row.
type Group struct {
	ID        int64
	SiteID    int64
	Kind      Kind
	Name      string
	Taxis     int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one stored media asset.
type Item struct {
	ID        int64
	SiteID    int64
	GroupID   int64
	Kind      Kind
	Title     string
	FileName  string
	URL       string
	SizeBytes int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
