package authz

// Scope names the resource level a permission check applies to. A zero
// field means that level is absent; content inherits its channel's scope.
type Scope struct {
	SiteID    int64
	ChannelID int64
	ContentID int64
}

// SiteScope builds a scope covering a whole site.
func SiteScope(siteID int64) Scope {
	return Scope{SiteID: siteID}
}

// ChannelScope builds a scope covering a single channel.
func ChannelScope(siteID, channelID int64) Scope {
	return Scope{SiteID: siteID, ChannelID: channelID}
}

// ContentScope builds a scope covering a single content item.
func ContentScope(siteID, channelID, contentID int64) Scope {
	return Scope{SiteID: siteID, ChannelID: channelID, ContentID: contentID}
}

// Global reports whether the scope names no site at all.
func (s Scope) Global() bool { return s.SiteID == 0 }

// PermissionSet is the union of grants gathered for one (actor, site)
// pair, split by the layer each grant was declared at. Channel overrides
// are keyed by channel ID.
type PermissionSet struct {
	Global  []Capability           `json:"global"`
	Site    []Capability           `json:"site"`
	Channel map[int64][]Capability `json:"channel,omitempty"`
}

// HasGlobal reports whether the capability appears in the global layer.
func (p *PermissionSet) HasGlobal(c Capability) bool {
	return contains(p.Global, c)
}

// HasSite reports whether the capability appears in the global or site
// layer. Any granting row permits.
func (p *PermissionSet) HasSite(c Capability) bool {
	return contains(p.Global, c) || contains(p.Site, c)
}

// HasChannel reports whether the capability is granted at the channel,
// counting the global and site layers plus the override rows for the given
// channel. Overrides only ever widen the site-level grant.
func (p *PermissionSet) HasChannel(channelID int64, c Capability) bool {
	if p.HasSite(c) {
		return true
	}
	return contains(p.Channel[channelID], c)
}

// SiteBase reports whether the actor holds at least one site-level grant,
// the prerequisite gate for channel overrides to take effect.
func (p *PermissionSet) SiteBase() bool {
	return len(p.Site) > 0
}

func contains(list []Capability, c Capability) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
