package users

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-cms/lattice/internal/shared"
)

type memAccountsRepo struct {
	admins    map[int64]*Account
	siteUsers map[int64]*Account
	passwords map[string]string
	nextID    int64
}

func newMemAccountsRepo() *memAccountsRepo {
	return &memAccountsRepo{
		admins:    map[int64]*Account{},
		siteUsers: map[int64]*Account{},
		passwords: map[string]string{},
		nextID:    1,
	}
}

func (m *memAccountsRepo) ListAdministrators(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAccountsRepo) ListSiteUsers(context.Context, int32, int32) ([]Account, error) {
	out := make([]Account, 0, len(m.siteUsers))
	for _, a := range m.siteUsers {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAccountsRepo) CountSiteUsers(context.Context) (int, error) {
	return len(m.siteUsers), nil
}

func (m *memAccountsRepo) CreateAdministrator(_ context.Context, username, passwordHash, roleName string) (int64, error) {
	id := m.nextID
	m.nextID++
	m.admins[id] = &Account{Kind: shared.ActorAdministrator, ID: id, Username: username, RoleName: roleName, IsActive: true}
	m.passwords[accountKey(shared.ActorAdministrator, id)] = passwordHash
	return id, nil
}

func (m *memAccountsRepo) CreateSiteUser(_ context.Context, username, passwordHash string) (int64, error) {
	id := m.nextID
	m.nextID++
	m.siteUsers[id] = &Account{Kind: shared.ActorUser, ID: id, Username: username, IsActive: true}
	m.passwords[accountKey(shared.ActorUser, id)] = passwordHash
	return id, nil
}

func (m *memAccountsRepo) SetActive(_ context.Context, kind shared.ActorKind, id int64, active bool) error {
	acc := m.find(kind, id)
	if acc == nil {
		return shared.ErrNotFound
	}
	acc.IsActive = active
	return nil
}

func (m *memAccountsRepo) SetPassword(_ context.Context, kind shared.ActorKind, id int64, passwordHash string) error {
	if m.find(kind, id) == nil {
		return shared.ErrNotFound
	}
	m.passwords[accountKey(kind, id)] = passwordHash
	return nil
}

func (m *memAccountsRepo) find(kind shared.ActorKind, id int64) *Account {
	if kind == shared.ActorAdministrator {
		return m.admins[id]
	}
	return m.siteUsers[id]
}

func accountKey(kind shared.ActorKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}

func TestCreateAdministratorHashesPassword(t *testing.T) {
	repo := newMemAccountsRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), NewAccount{
		Kind:     shared.ActorAdministrator,
		Username: "  editor ",
		Password: "sturdy-pass",
		RoleName: "editor",
	})
	require.NoError(t, err)

	acc := repo.admins[id]
	require.NotNil(t, acc)
	assert.Equal(t, "editor", acc.Username)
	assert.Equal(t, "editor", acc.RoleName)

	hash := repo.passwords[accountKey(shared.ActorAdministrator, id)]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("sturdy-pass")))
}

func TestCreateSiteUserIgnoresRoleName(t *testing.T) {
	repo := newMemAccountsRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), NewAccount{
		Kind:     shared.ActorUser,
		Username: "writer",
		Password: "sturdy-pass",
		RoleName: "ignored",
	})
	require.NoError(t, err)

	acc := repo.siteUsers[id]
	require.NotNil(t, acc)
	assert.Empty(t, acc.RoleName)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := NewService(newMemAccountsRepo())

	_, err := svc.Create(context.Background(), NewAccount{Kind: shared.ActorUser, Username: "  ", Password: "sturdy-pass"})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)

	_, err = svc.Create(context.Background(), NewAccount{Kind: shared.ActorUser, Username: "writer", Password: "short"})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)

	_, err = svc.Create(context.Background(), NewAccount{Kind: "robot", Username: "writer", Password: "sturdy-pass"})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestSetActiveTogglesAccount(t *testing.T) {
	repo := newMemAccountsRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), NewAccount{Kind: shared.ActorUser, Username: "writer", Password: "sturdy-pass"})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), shared.ActorUser, id, false))
	assert.False(t, repo.siteUsers[id].IsActive)

	require.NoError(t, svc.SetActive(context.Background(), shared.ActorUser, id, true))
	assert.True(t, repo.siteUsers[id].IsActive)

	assert.ErrorIs(t, svc.SetActive(context.Background(), shared.ActorUser, 404, false), shared.ErrNotFound)
}

func TestListSiteUsersReportsPagination(t *testing.T) {
	repo := newMemAccountsRepo()
	svc := NewService(repo)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), NewAccount{
			Kind:     shared.ActorUser,
			Username: "writer-" + strconv.Itoa(i),
			Password: "sturdy-pass",
		})
		require.NoError(t, err)
	}

	_, meta, err := svc.ListSiteUsers(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 2, meta.PerPage)
	assert.Equal(t, 5, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
}

func TestResetPasswordRequiresMinLength(t *testing.T) {
	repo := newMemAccountsRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), NewAccount{Kind: shared.ActorAdministrator, Username: "editor", Password: "original-pass"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), shared.ActorAdministrator, id, "tiny"), shared.ErrValidationFailed)

	require.NoError(t, svc.ResetPassword(context.Background(), shared.ActorAdministrator, id, "replacement-pass"))
	hash := repo.passwords[accountKey(shared.ActorAdministrator, id)]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("replacement-pass")))
}
