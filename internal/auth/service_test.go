package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-cms/lattice/internal/shared"
)

type mockRepo struct {
	admins   map[string]*Administrator
	users    map[string]*SiteUser
	sessions map[string]shared.ActorKind
	touched  []int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		admins:   make(map[string]*Administrator),
		users:    make(map[string]*SiteUser),
		sessions: make(map[string]shared.ActorKind),
	}
}

func (m *mockRepo) FindAdministratorByUsername(_ context.Context, username string) (*Administrator, error) {
	if a, ok := m.admins[username]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) FindAdministratorByID(_ context.Context, id int64) (*Administrator, error) {
	for _, a := range m.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) FindSiteUserByUsername(_ context.Context, username string) (*SiteUser, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) FindSiteUserByID(_ context.Context, id int64) (*SiteUser, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) TouchAdministratorLogin(_ context.Context, id int64, _ time.Time) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockRepo) CreateSession(_ context.Context, id string, kind shared.ActorKind, _ int64, _ time.Time, _, _ string) error {
	m.sessions[id] = kind
	return nil
}

func (m *mockRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticateAdministrator(t *testing.T) {
	repo := newMockRepo()
	repo.admins["chief"] = &Administrator{
		ID: 7, Username: "chief", PasswordHash: hash(t, "sekrit99"),
		RoleName: "editor-in-chief", IsActive: true,
	}
	svc := NewService(repo)

	actor, err := svc.Authenticate(context.Background(), "chief", "sekrit99")
	require.NoError(t, err)
	assert.Equal(t, shared.ActorAdministrator, actor.Kind)
	assert.Equal(t, int64(7), actor.ID)
	assert.Equal(t, "editor-in-chief", actor.Role)
	assert.Equal(t, []int64{7}, repo.touched)
}

func TestAuthenticateFallsThroughToSiteUser(t *testing.T) {
	repo := newMockRepo()
	repo.users["reader"] = &SiteUser{
		ID: 21, Username: "reader", PasswordHash: hash(t, "hunter22"), IsActive: true,
	}
	svc := NewService(repo)

	actor, err := svc.Authenticate(context.Background(), "reader", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, shared.ActorUser, actor.Kind)
	assert.Equal(t, int64(21), actor.ID)
	assert.False(t, actor.SuperAdmin)
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	repo := newMockRepo()
	repo.admins["chief"] = &Administrator{
		ID: 7, Username: "chief", PasswordHash: hash(t, "sekrit99"), IsActive: true,
	}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "chief", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Empty(t, repo.touched)
}

func TestAuthenticateRejectsInactiveAccounts(t *testing.T) {
	repo := newMockRepo()
	repo.admins["old"] = &Administrator{
		ID: 1, Username: "old", PasswordHash: hash(t, "sekrit99"), IsActive: false,
	}
	repo.users["gone"] = &SiteUser{
		ID: 2, Username: "gone", PasswordHash: hash(t, "hunter22"), IsActive: false,
	}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "old", "sekrit99")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "gone", "hunter22")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUsername(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveActor(t *testing.T) {
	repo := newMockRepo()
	repo.admins["chief"] = &Administrator{ID: 7, Username: "chief", SuperAdmin: true, IsActive: true}
	repo.users["reader"] = &SiteUser{ID: 21, Username: "reader", IsActive: true}
	svc := NewService(repo)

	actor, err := svc.ResolveActor(context.Background(), shared.ActorAdministrator, 7)
	require.NoError(t, err)
	assert.True(t, actor.SuperAdmin)

	actor, err = svc.ResolveActor(context.Background(), shared.ActorUser, 21)
	require.NoError(t, err)
	assert.Equal(t, "reader", actor.Username)

	_, err = svc.ResolveActor(context.Background(), shared.ActorUser, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveActorSkipsDeactivated(t *testing.T) {
	repo := newMockRepo()
	repo.admins["old"] = &Administrator{ID: 7, Username: "old", IsActive: false}
	svc := NewService(repo)

	_, err := svc.ResolveActor(context.Background(), shared.ActorAdministrator, 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
