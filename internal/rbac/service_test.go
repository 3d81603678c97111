package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

type grantKey struct {
	subject    Subject
	siteID     int64
	channelID  int64
	capability authz.Capability
}

type mockRBACRepo struct {
	roles       map[int64]*Role
	nextRoleID  int64
	grants      map[grantKey]struct{}
	assignments []Assignment
}

func newMockRBACRepo() *mockRBACRepo {
	return &mockRBACRepo{
		roles:      make(map[int64]*Role),
		nextRoleID: 1,
		grants:     make(map[grantKey]struct{}),
	}
}

func (m *mockRBACRepo) ListRoles(context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRBACRepo) GetRole(_ context.Context, id int64) (*Role, error) {
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRBACRepo) CreateRole(_ context.Context, name, description string) (*Role, error) {
	r := &Role{ID: m.nextRoleID, Name: name, Description: description}
	m.nextRoleID++
	m.roles[r.ID] = r
	return r, nil
}

func (m *mockRBACRepo) UpdateRole(_ context.Context, id int64, name, description string) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	r.Name, r.Description = name, description
	return r, nil
}

func (m *mockRBACRepo) DeleteRole(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRBACRepo) ListGrants(_ context.Context, subject Subject) ([]Grant, error) {
	var out []Grant
	for k := range m.grants {
		if k.subject == subject {
			out = append(out, Grant{Subject: subject, SiteID: k.siteID, ChannelID: k.channelID, Capability: k.capability})
		}
	}
	return out, nil
}

func (m *mockRBACRepo) InsertGrants(_ context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	for _, c := range caps {
		m.grants[grantKey{subject, siteID, channelID, c}] = struct{}{}
	}
	return nil
}

func (m *mockRBACRepo) DeleteGrants(_ context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	if len(caps) == 0 {
		for k := range m.grants {
			if k.subject == subject && k.siteID == siteID && k.channelID == channelID {
				delete(m.grants, k)
			}
		}
		return nil
	}
	for _, c := range caps {
		delete(m.grants, grantKey{subject, siteID, channelID, c})
	}
	return nil
}

func (m *mockRBACRepo) ListAssignments(_ context.Context, kind shared.ActorKind, id int64) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.assignments {
		if a.ActorKind == kind && a.ActorID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRBACRepo) InsertAssignment(_ context.Context, a Assignment) error {
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *mockRBACRepo) DeleteAssignment(_ context.Context, a Assignment) error {
	for i, have := range m.assignments {
		if have == a {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type mockInvalidator struct {
	actors []string
	sites  []int64
	all    int
}

func (m *mockInvalidator) Invalidate(_ context.Context, actorKey string) {
	m.actors = append(m.actors, actorKey)
}
func (m *mockInvalidator) InvalidateSite(_ context.Context, siteID int64) {
	m.sites = append(m.sites, siteID)
}
func (m *mockInvalidator) InvalidateAll(context.Context) { m.all++ }

func TestGrantToActorInvalidatesThatActorOnly(t *testing.T) {
	repo := newMockRBACRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	subject := Subject{Kind: SubjectUser, ID: 42}
	err := svc.Grant(context.Background(), subject, 1, 0, []authz.Capability{authz.ContentView, authz.ContentAdd})
	require.NoError(t, err)

	assert.Equal(t, []string{"user:42"}, inv.actors)
	assert.Zero(t, inv.all)

	grants, err := svc.ListGrants(context.Background(), subject)
	require.NoError(t, err)
	assert.Len(t, grants, 2)
}

func TestGrantToRoleInvalidatesEverything(t *testing.T) {
	repo := newMockRBACRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	subject := Subject{Kind: SubjectRole, ID: 3}
	err := svc.Grant(context.Background(), subject, 1, 10, []authz.Capability{authz.ContentCheck})
	require.NoError(t, err)

	assert.Empty(t, inv.actors)
	assert.Equal(t, 1, inv.all)
}

func TestRevokeInvalidates(t *testing.T) {
	repo := newMockRBACRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	subject := Subject{Kind: SubjectAdministrator, ID: 7}
	require.NoError(t, svc.Grant(context.Background(), subject, 1, 0, []authz.Capability{authz.ContentEdit}))
	require.NoError(t, svc.Revoke(context.Background(), subject, 1, 0, nil))

	assert.Equal(t, []string{"administrator:7", "administrator:7"}, inv.actors)
	grants, _ := svc.ListGrants(context.Background(), subject)
	assert.Empty(t, grants)
}

func TestGrantRejectsUnknownCapability(t *testing.T) {
	svc := NewService(newMockRBACRepo(), &mockInvalidator{})
	err := svc.Grant(context.Background(), Subject{Kind: SubjectUser, ID: 1}, 1, 0,
		[]authz.Capability{"content.teleport"})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestGrantRejectsChannelWithoutSite(t *testing.T) {
	svc := NewService(newMockRBACRepo(), &mockInvalidator{})
	err := svc.Grant(context.Background(), Subject{Kind: SubjectUser, ID: 1}, 0, 10,
		[]authz.Capability{authz.ContentView})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestAssignAndRemoveRoleInvalidateActor(t *testing.T) {
	repo := newMockRBACRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	role, err := svc.CreateRole(context.Background(), "reviewer", "can check content")
	require.NoError(t, err)

	a := Assignment{ActorKind: shared.ActorUser, ActorID: 9, RoleID: role.ID, SiteID: 1}
	require.NoError(t, svc.AssignRole(context.Background(), a))
	assert.Equal(t, []string{"user:9"}, inv.actors)

	listed, err := svc.ListAssignments(context.Background(), shared.ActorUser, 9)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, role.ID, listed[0].RoleID)

	require.NoError(t, svc.RemoveRole(context.Background(), a))
	assert.Equal(t, []string{"user:9", "user:9"}, inv.actors)
}

func TestAssignRoleRequiresExistingRole(t *testing.T) {
	svc := NewService(newMockRBACRepo(), &mockInvalidator{})
	err := svc.AssignRole(context.Background(), Assignment{ActorKind: shared.ActorUser, ActorID: 9, RoleID: 404})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRoleInvalidatesEverything(t *testing.T) {
	repo := newMockRBACRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	role, err := svc.CreateRole(context.Background(), "reviewer", "")
	require.NoError(t, err)
	assert.Zero(t, inv.all)

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))
	assert.Equal(t, 1, inv.all)
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newMockRBACRepo(), &mockInvalidator{})
	_, err := svc.CreateRole(context.Background(), "   ", "")
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}
