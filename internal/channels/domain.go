package channels

import "time"

// Channel is a node of a site's content tree. ParentID 0 marks a root
// channel directly under the site.
type Channel struct {
	ID        int64
	SiteID    int64
	ParentID  int64
	Name      string
	IndexName string
	Taxis     int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Node is a channel with its resolved children, used for tree rendering.
type Node struct {
	Channel
	Children []*Node
}
