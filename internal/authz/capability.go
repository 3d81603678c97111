package authz

// Capability is a named permission unit evaluated at a scope. The set is
// extensible: plugins may register additional capabilities at startup, so
// validity is checked against the registry rather than a fixed list.
type Capability string

// Channel-scope capabilities.
const (
	ContentView      Capability = "content.view"
	ContentAdd       Capability = "content.add"
	ContentEdit      Capability = "content.edit"
	ContentDelete    Capability = "content.delete"
	ContentCheck     Capability = "content.check"
	ContentTranslate Capability = "content.translate"

	ChannelAdd    Capability = "channel.add"
	ChannelEdit   Capability = "channel.edit"
	ChannelDelete Capability = "channel.delete"
)

// Site-scope capabilities. These gate site-wide surfaces such as the
// library and site settings, independent of channel overrides.
const (
	LibraryFile     Capability = "library.file"
	LibraryImage    Capability = "library.image"
	SettingsContent Capability = "settings.content"
	SettingsSite    Capability = "settings.site"
)

// Global capabilities available to administrator roles only.
const (
	SitesAdd    Capability = "sites.add"
	SitesManage Capability = "sites.manage"
	UsersManage Capability = "users.manage"
	RolesManage Capability = "roles.manage"
	AuditView   Capability = "audit.view"
)

// ChannelScopes lists all capabilities evaluated at channel scope.
func ChannelScopes() []Capability {
	return []Capability{
		ContentView,
		ContentAdd,
		ContentEdit,
		ContentDelete,
		ContentCheck,
		ContentTranslate,
		ChannelAdd,
		ChannelEdit,
		ChannelDelete,
	}
}

// SiteScopes lists all capabilities evaluated at site scope.
func SiteScopes() []Capability {
	return []Capability{
		LibraryFile,
		LibraryImage,
		SettingsContent,
		SettingsSite,
	}
}

// GlobalScopes lists all capabilities evaluated at global scope.
func GlobalScopes() []Capability {
	return []Capability{
		SitesAdd,
		SitesManage,
		UsersManage,
		RolesManage,
		AuditView,
	}
}

var registry = buildRegistry()

func buildRegistry() map[Capability]struct{} {
	m := make(map[Capability]struct{})
	for _, list := range [][]Capability{ChannelScopes(), SiteScopes(), GlobalScopes()} {
		for _, c := range list {
			m[c] = struct{}{}
		}
	}
	return m
}

// Register adds a capability to the registry. Call during startup, before
// any resolution happens; the registry is not safe for concurrent writes.
func Register(c Capability) {
	registry[c] = struct{}{}
}

// Known reports whether the capability is registered.
func (c Capability) Known() bool {
	_, ok := registry[c]
	return ok
}
