package sites

import "time"

// Site is the root of a content tenant. Dir is the unique directory name
// used for publishing paths.
type Site struct {
	ID          int64
	Name        string
	Dir         string
	Description string
	Taxis       int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Settings holds the per-site knobs read by the content workflow.
type Settings struct {
	SiteID              int64
	CheckContentIsAdmin bool
	PageSize            int32
	ChannelSeparator    string
}
