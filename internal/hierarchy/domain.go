package hierarchy

// SiteRef identifies a site in a resolved chain.
type SiteRef struct {
	ID   int64
	Name string
}

// ChannelRef identifies a channel and its position in the site tree.
type ChannelRef struct {
	ID       int64
	SiteID   int64
	ParentID int64
	Name     string
}

// ContentRef identifies a content item together with its review status.
// Content identity is the (site, channel, content) triple; a content
// fetched by ID alone is ambiguous and must be re-validated against the
// claimed channel and site.
type ContentRef struct {
	ID         int64
	ChannelID  int64
	SiteID     int64
	Title      string
	AuthorID   int64
	AuthorKind string
	CheckState string
	Checked    bool
	Version    int64
}

// Chain is a validated site → channel → content identity chain. Channel
// and Content are nil when the corresponding level was not requested.
type Chain struct {
	Site    *SiteRef
	Channel *ChannelRef
	Content *ContentRef
}
