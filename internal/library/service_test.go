package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/shared"
)

type memStore struct {
	site map[string][]authz.Capability
}

func (m *memStore) GlobalGrants(context.Context, *shared.Actor) ([]authz.Capability, error) {
	return nil, nil
}

func (m *memStore) SiteGrants(_ context.Context, actor *shared.Actor, _ int64) ([]authz.Capability, error) {
	return m.site[actor.Key()], nil
}

func (m *memStore) ChannelGrants(context.Context, *shared.Actor, int64) (map[int64][]authz.Capability, error) {
	return nil, nil
}

type siteOnlyChain struct{}

func (siteOnlyChain) Validate(_ context.Context, siteID, _, _ int64) (*hierarchy.Chain, error) {
	return &hierarchy.Chain{Site: &hierarchy.SiteRef{ID: siteID}}, nil
}

type memLibraryRepo struct {
	groups map[int64]*Group
	items  map[int64]*Item
	nextID int64
}

func newMemLibraryRepo() *memLibraryRepo {
	return &memLibraryRepo{groups: make(map[int64]*Group), items: make(map[int64]*Item)}
}

func (m *memLibraryRepo) ListGroups(_ context.Context, siteID int64, kind Kind) ([]Group, error) {
	var out []Group
	for _, g := range m.groups {
		if g.SiteID == siteID && g.Kind == kind {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memLibraryRepo) GetGroup(_ context.Context, siteID, id int64) (*Group, error) {
	if g, ok := m.groups[id]; ok && g.SiteID == siteID {
		return g, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memLibraryRepo) CreateGroup(_ context.Context, g *Group) (*Group, error) {
	m.nextID++
	g.ID = m.nextID
	m.groups[g.ID] = g
	return g, nil
}

func (m *memLibraryRepo) DeleteGroup(_ context.Context, siteID, id int64) error {
	if g, ok := m.groups[id]; ok && g.SiteID == siteID {
		for _, item := range m.items {
			if item.GroupID == id {
				item.GroupID = 0
			}
		}
		delete(m.groups, id)
		return nil
	}
	return shared.ErrNotFound
}

func (m *memLibraryRepo) ListItems(_ context.Context, siteID int64, kind Kind, groupID int64, _, _ int32) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.SiteID != siteID || item.Kind != kind {
			continue
		}
		if groupID != 0 && item.GroupID != groupID {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (m *memLibraryRepo) GetItem(_ context.Context, siteID, id int64) (*Item, error) {
	if item, ok := m.items[id]; ok && item.SiteID == siteID {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memLibraryRepo) CreateItem(_ context.Context, item *Item) (*Item, error) {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return item, nil
}

func (m *memLibraryRepo) DeleteItem(_ context.Context, siteID, id int64) error {
	if item, ok := m.items[id]; ok && item.SiteID == siteID {
		delete(m.items, id)
		return nil
	}
	return shared.ErrNotFound
}

func newService(store *memStore) (*Service, *memLibraryRepo) {
	repo := newMemLibraryRepo()
	resolver := authz.NewResolver(store, nil, nil, authz.ResolverOptions{})
	facade := authz.NewFacade(resolver, siteOnlyChain{}, nil, nil)
	return NewService(repo, facade), repo
}

func librarian() *shared.Actor {
	return &shared.Actor{Kind: shared.ActorAdministrator, ID: 3, Username: "librarian"}
}

func TestLibrariesAreSeparatelyGated(t *testing.T) {
	store := &memStore{site: map[string][]authz.Capability{
		librarian().Key(): {authz.LibraryFile},
	}}
	svc, _ := newService(store)

	_, err := svc.ListItems(context.Background(), librarian(), 1, KindFile, 0, 0, 0)
	require.NoError(t, err)

	_, err = svc.ListItems(context.Background(), librarian(), 1, KindImage, 0, 0, 0)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGroupZeroListsEverything(t *testing.T) {
	store := &memStore{site: map[string][]authz.Capability{
		librarian().Key(): {authz.LibraryImage},
	}}
	svc, _ := newService(store)

	group, err := svc.CreateGroup(context.Background(), librarian(), &Group{SiteID: 1, Kind: KindImage, Name: "Banners"})
	require.NoError(t, err)

	_, err = svc.CreateItem(context.Background(), librarian(), &Item{
		SiteID: 1, Kind: KindImage, GroupID: group.ID, FileName: "hero.png", URL: "/u/hero.png",
	})
	require.NoError(t, err)
	_, err = svc.CreateItem(context.Background(), librarian(), &Item{
		SiteID: 1, Kind: KindImage, FileName: "logo.png", URL: "/u/logo.png",
	})
	require.NoError(t, err)

	all, err := svc.ListItems(context.Background(), librarian(), 1, KindImage, 0, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	grouped, err := svc.ListItems(context.Background(), librarian(), 1, KindImage, group.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, grouped, 1)
}

func TestDeleteGroupMovesItemsToAll(t *testing.T) {
	store := &memStore{site: map[string][]authz.Capability{
		librarian().Key(): {authz.LibraryFile},
	}}
	svc, repo := newService(store)

	group, err := svc.CreateGroup(context.Background(), librarian(), &Group{SiteID: 1, Kind: KindFile, Name: "Reports"})
	require.NoError(t, err)
	item, err := svc.CreateItem(context.Background(), librarian(), &Item{
		SiteID: 1, Kind: KindFile, GroupID: group.ID, FileName: "q2.pdf", URL: "/u/q2.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGroup(context.Background(), librarian(), 1, KindFile, group.ID))
	assert.Equal(t, int64(0), repo.items[item.ID].GroupID)
}

func TestDeleteAllGroupRefused(t *testing.T) {
	store := &memStore{site: map[string][]authz.Capability{
		librarian().Key(): {authz.LibraryFile},
	}}
	svc, _ := newService(store)
	err := svc.DeleteGroup(context.Background(), librarian(), 1, KindFile, 0)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestItemGroupMustMatchLibrary(t *testing.T) {
	store := &memStore{site: map[string][]authz.Capability{
		librarian().Key(): {authz.LibraryFile, authz.LibraryImage},
	}}
	svc, _ := newService(store)

	imageGroup, err := svc.CreateGroup(context.Background(), librarian(), &Group{SiteID: 1, Kind: KindImage, Name: "Banners"})
	require.NoError(t, err)

	_, err = svc.CreateItem(context.Background(), librarian(), &Item{
		SiteID: 1, Kind: KindFile, GroupID: imageGroup.ID, FileName: "notes.txt", URL: "/u/notes.txt",
	})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}
