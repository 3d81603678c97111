package contents

import (
	"time"

	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/workflow"
)

// Content is one entry in a channel. CheckState drives visibility: only
// checked content is eligible for publishing surfaces.
type Content struct {
	ID         int64
	SiteID     int64
	ChannelID  int64
	Title      string
	Summary    string
	Body       string
	AuthorKind shared.ActorKind
	AuthorID   int64
	CheckState workflow.State
	Checked    bool
	Taxis      int32
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LayerView is the read model for the content layer page: the content
// plus its position in the site and its workflow projection.
type LayerView struct {
	Content           Content
	ChannelNavigation string
	Check             *workflow.CheckState
}

// ListFilter narrows content listings.
type ListFilter struct {
	ChannelID  int64
	CheckState workflow.State
	Limit      int32
	Offset     int32
}
