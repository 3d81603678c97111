package authz

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/shared"
)

// ============================================================================
// MOCK CHAIN VALIDATOR
// ============================================================================

type mockChain struct {
	mu       sync.Mutex
	sites    map[int64]*hierarchy.SiteRef
	channels map[int64]*hierarchy.ChannelRef
	contents map[int64]*hierarchy.ContentRef
	calls    int
}

func newMockChain() *mockChain {
	return &mockChain{
		sites:    make(map[int64]*hierarchy.SiteRef),
		channels: make(map[int64]*hierarchy.ChannelRef),
		contents: make(map[int64]*hierarchy.ContentRef),
	}
}

func (m *mockChain) Validate(ctx context.Context, siteID, channelID, contentID int64) (*hierarchy.Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	site, ok := m.sites[siteID]
	if !ok {
		return nil, &shared.NotFoundError{Level: shared.NotFoundSite, SiteID: siteID}
	}
	chain := &hierarchy.Chain{Site: site}
	if channelID == 0 && contentID != 0 {
		content, ok := m.contents[contentID]
		if !ok || content.SiteID != siteID {
			return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ContentID: contentID}
		}
		channelID = content.ChannelID
	}
	if channelID != 0 {
		channel, ok := m.channels[channelID]
		if !ok || channel.SiteID != siteID {
			return nil, &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: channelID}
		}
		chain.Channel = channel
	}
	if contentID != 0 {
		content, ok := m.contents[contentID]
		if !ok || content.ChannelID != channelID || content.SiteID != siteID {
			return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ChannelID: channelID, ContentID: contentID}
		}
		chain.Content = content
	}
	return chain, nil
}

func (m *mockChain) addSite(id int64) {
	m.sites[id] = &hierarchy.SiteRef{ID: id, Name: "site"}
}

func (m *mockChain) addChannel(siteID, id int64) {
	m.channels[id] = &hierarchy.ChannelRef{ID: id, SiteID: siteID, Name: "channel"}
}

func (m *mockChain) addContent(siteID, channelID, id int64, state string) {
	m.contents[id] = &hierarchy.ContentRef{ID: id, SiteID: siteID, ChannelID: channelID, CheckState: state}
}

type recordedDenial struct {
	actor      *shared.Actor
	scope      Scope
	capability Capability
}

type mockDeniedRecorder struct {
	mu      sync.Mutex
	denials []recordedDenial
}

func (m *mockDeniedRecorder) RecordDenied(ctx context.Context, actor *shared.Actor, scope Scope, capability Capability, reason error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denials = append(m.denials, recordedDenial{actor: actor, scope: scope, capability: capability})
}

// ============================================================================
// TESTS
// ============================================================================

func newTestFacade(store *mockStore, chain *mockChain, denied DeniedRecorder) *Facade {
	resolver := NewResolver(store, nil, nil, ResolverOptions{})
	return NewFacade(resolver, chain, denied, nil)
}

func TestAuthorizeUnauthenticatedBeforeAnything(t *testing.T) {
	store := newMockStore()
	store.failAll = true
	chain := newMockChain()
	facade := newTestFacade(store, chain, nil)

	_, err := facade.Authorize(context.Background(), nil, ChannelScope(1, 10), ContentView)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Zero(t, chain.calls, "chain must not be consulted for anonymous callers")
	assert.Zero(t, store.callCount())
}

func TestAuthorizeChainBeforePermissions(t *testing.T) {
	store := newMockStore()
	actor := testActor()
	store.grantSite(actor, 1, ContentView)
	chain := newMockChain()
	chain.addSite(1)
	chain.addChannel(1, 10)
	// Content 100 lives in channel 20 of site 2, not in the claimed chain.
	chain.addSite(2)
	chain.addChannel(2, 20)
	chain.addContent(2, 20, 100, "draft")

	facade := newTestFacade(store, chain, nil)

	_, err := facade.Authorize(context.Background(), actor, ContentScope(1, 10, 100), ContentView)
	var nf *shared.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, shared.NotFoundContent, nf.Level)
	assert.NotErrorIs(t, err, shared.ErrForbidden, "cross-tenant probes must fail as not found, not forbidden")
}

func TestAuthorizeUnknownSiteAndChannel(t *testing.T) {
	store := newMockStore()
	actor := testActor()
	store.grantSite(actor, 1, ContentView)
	chain := newMockChain()
	chain.addSite(1)
	facade := newTestFacade(store, chain, nil)

	_, err := facade.Authorize(context.Background(), actor, SiteScope(9), ContentView)
	var nf *shared.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, shared.NotFoundSite, nf.Level)

	_, err = facade.Authorize(context.Background(), actor, ChannelScope(1, 99), ContentView)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, shared.NotFoundChannel, nf.Level)
}

func TestAuthorizeAllowedAndDenied(t *testing.T) {
	store := newMockStore()
	actor := testActor()
	store.grantSite(actor, 1, ContentView)
	chain := newMockChain()
	chain.addSite(1)
	chain.addChannel(1, 10)
	chain.addContent(1, 10, 100, "draft")
	denied := &mockDeniedRecorder{}
	facade := newTestFacade(store, chain, denied)

	got, err := facade.Authorize(context.Background(), actor, ContentScope(1, 10, 100), ContentView)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.Content.ID)

	_, err = facade.Authorize(context.Background(), actor, ContentScope(1, 10, 100), ContentCheck)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Len(t, denied.denials, 1)
	assert.Equal(t, ContentCheck, denied.denials[0].capability)
}

func TestAuthorizeContentScopeWithoutChannel(t *testing.T) {
	store := newMockStore()
	actor := testActor()
	store.grantChannel(actor, 1, 10, ContentView)
	store.grantSite(actor, 1, SettingsContent) // site base for the gate
	chain := newMockChain()
	chain.addSite(1)
	chain.addChannel(1, 10)
	chain.addContent(1, 10, 100, "draft")
	facade := newTestFacade(store, chain, nil)

	// The caller names only (site, content); the decision must run at the
	// content's real channel.
	_, err := facade.Authorize(context.Background(), actor, Scope{SiteID: 1, ContentID: 100}, ContentView)
	assert.NoError(t, err)
}

func TestAuthorizeSuperAdminWithFailingStore(t *testing.T) {
	store := newMockStore()
	store.failAll = true
	chain := newMockChain()
	chain.addSite(1)
	chain.addChannel(1, 10)
	facade := newTestFacade(store, chain, nil)

	_, err := facade.Authorize(context.Background(), testAdmin(true), ChannelScope(1, 10), ContentDelete)
	require.NoError(t, err)
	assert.Zero(t, store.callCount())
}

func TestAuthorizeStoreUnavailableSurfaced(t *testing.T) {
	store := newMockStore()
	store.failAll = true
	chain := newMockChain()
	chain.addSite(1)
	facade := newTestFacade(store, chain, nil)

	_, err := facade.Authorize(context.Background(), testActor(), SiteScope(1), ContentView)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}
