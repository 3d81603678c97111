package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockChain struct {
	contents map[int64]*hierarchy.ContentRef
}

func (m *mockChain) Validate(ctx context.Context, siteID, channelID, contentID int64) (*hierarchy.Chain, error) {
	content, ok := m.contents[contentID]
	if !ok || content.SiteID != siteID {
		return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ContentID: contentID}
	}
	return &hierarchy.Chain{
		Site:    &hierarchy.SiteRef{ID: siteID},
		Channel: &hierarchy.ChannelRef{ID: content.ChannelID, SiteID: siteID},
		Content: content,
	}, nil
}

// mockResolver grants capabilities per actor key at channel scope.
type mockResolver struct {
	grants map[string][]authz.Capability
}

func (m *mockResolver) Resolve(ctx context.Context, actor *shared.Actor, scope authz.Scope, capability authz.Capability) error {
	if !actor.Authenticated() {
		return shared.ErrUnauthenticated
	}
	if actor.SuperAdmin {
		return nil
	}
	for _, c := range m.grants[actor.Key()] {
		if c == capability {
			return nil
		}
	}
	return fmt.Errorf("%w: lacks %q", shared.ErrForbidden, capability)
}

// mockRepo keeps states in memory; TransitionContent is a mutex-guarded
// compare-and-swap mirroring the SQL predicate.
type mockRepo struct {
	mu     sync.Mutex
	states map[int64]State
	fail   bool
}

func (m *mockRepo) TransitionContent(ctx context.Context, contentID int64, from, to State, checked bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, fmt.Errorf("%w: db down", shared.ErrStoreUnavailable)
	}
	if m.states[contentID] != from {
		return false, nil
	}
	m.states[contentID] = to
	return true, nil
}

func (m *mockRepo) GetState(ctx context.Context, contentID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[contentID], nil
}

type mockHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (m *mockHistory) Record(ctx context.Context, entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistory) List(ctx context.Context, contentID int64) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryEntry
	for _, e := range m.entries {
		if e.ContentID == contentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	chain   *mockChain
	repo    *mockRepo
	history *mockHistory
	grants  map[string][]authz.Capability
}

func newFixture(state State) *fixture {
	chain := &mockChain{contents: map[int64]*hierarchy.ContentRef{
		100: {ID: 100, SiteID: 1, ChannelID: 10, CheckState: string(state), Checked: state.Checked()},
	}}
	repo := &mockRepo{states: map[int64]State{100: state}}
	history := &mockHistory{}
	grants := make(map[string][]authz.Capability)
	svc := NewService(chain, &mockResolver{grants: grants}, repo, history, nil)
	return &fixture{svc: svc, chain: chain, repo: repo, history: history, grants: grants}
}

// syncState mirrors the repo state into the chain lookup, as the real
// hierarchy accessor reads the same row the workflow repo writes.
func (f *fixture) syncState() {
	state := f.repo.states[100]
	f.chain.contents[100].CheckState = string(state)
	f.chain.contents[100].Checked = state.Checked()
}

func author() *shared.Actor {
	return &shared.Actor{Kind: shared.ActorUser, ID: 7, Username: "author"}
}

func reviewer() *shared.Actor {
	return &shared.Actor{Kind: shared.ActorUser, ID: 8, Username: "reviewer"}
}

// ============================================================================
// TESTS
// ============================================================================

func TestApplySubmitAndApprove(t *testing.T) {
	f := newFixture(StateDraft)
	f.grants[author().Key()] = []authz.Capability{authz.ContentAdd, authz.ContentEdit}
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck}

	res, err := f.svc.Apply(context.Background(), author(), 1, 100, StatePending, "")
	require.NoError(t, err)
	assert.Equal(t, StatePending, res.State)
	assert.False(t, res.Checked)

	f.syncState()
	res, err = f.svc.Apply(context.Background(), reviewer(), 1, 100, StateChecked, "looks good")
	require.NoError(t, err)
	assert.Equal(t, StateChecked, res.State)
	assert.True(t, res.Checked)

	require.Len(t, f.history.entries, 2)
	assert.Equal(t, ActionSubmit, f.history.entries[0].Action)
	assert.Equal(t, ActionApprove, f.history.entries[1].Action)
	assert.Equal(t, reviewer().ID, f.history.entries[1].ActorID)
}

func TestApplyRejectAndResubmit(t *testing.T) {
	f := newFixture(StatePending)
	f.grants[author().Key()] = []authz.Capability{authz.ContentEdit}
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck}

	_, err := f.svc.Apply(context.Background(), reviewer(), 1, 100, StateRejected, "needs sources")
	require.NoError(t, err)
	assert.Equal(t, "needs sources", f.history.entries[0].Reason)

	f.syncState()
	res, err := f.svc.Apply(context.Background(), author(), 1, 100, StatePending, "")
	require.NoError(t, err)
	assert.Equal(t, StatePending, res.State)
	assert.Equal(t, ActionResubmit, f.history.entries[1].Action)
}

func TestApplyRevokePublished(t *testing.T) {
	f := newFixture(StateChecked)
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck}

	res, err := f.svc.Apply(context.Background(), reviewer(), 1, 100, StateDraft, "pulled")
	require.NoError(t, err)
	assert.Equal(t, StateDraft, res.State)
	assert.False(t, res.Checked)
	assert.Equal(t, ActionRevoke, f.history.entries[0].Action)
}

func TestApplyIllegalEdgeIsInvalidTransition(t *testing.T) {
	f := newFixture(StateDraft)
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck, authz.ContentEdit}

	// No direct edge draft -> checked.
	_, err := f.svc.Apply(context.Background(), reviewer(), 1, 100, StateChecked, "")
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	// No edge draft -> rejected.
	_, err = f.svc.Apply(context.Background(), reviewer(), 1, 100, StateRejected, "")
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	// checked -> checked is not a legal move either.
	g := newFixture(StateChecked)
	g.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck}
	_, err = g.svc.Apply(context.Background(), reviewer(), 1, 100, StateChecked, "")
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestApplyWithoutCapabilityIsForbidden(t *testing.T) {
	f := newFixture(StatePending)
	f.grants[author().Key()] = []authz.Capability{authz.ContentView}

	_, err := f.svc.Apply(context.Background(), author(), 1, 100, StateChecked, "")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.NotErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Empty(t, f.history.entries)
	assert.Equal(t, StatePending, f.repo.states[100], "state must not move")
}

func TestApplyUnauthenticated(t *testing.T) {
	f := newFixture(StateDraft)
	_, err := f.svc.Apply(context.Background(), nil, 1, 100, StatePending, "")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestApplyUnknownContentIsNotFound(t *testing.T) {
	f := newFixture(StateDraft)
	f.grants[author().Key()] = []authz.Capability{authz.ContentAdd}

	_, err := f.svc.Apply(context.Background(), author(), 1, 999, StatePending, "")
	var nf *shared.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, shared.NotFoundContent, nf.Level)

	// Content 100 under the wrong site fails the same way.
	_, err = f.svc.Apply(context.Background(), author(), 2, 100, StatePending, "")
	require.ErrorAs(t, err, &nf)
}

func TestApplyConcurrentApprovalsSingleWinner(t *testing.T) {
	f := newFixture(StatePending)
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentCheck}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Apply(context.Background(), reviewer(), 1, 100, StateChecked, "")
		}(i)
	}
	wg.Wait()

	var successes, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, shared.ErrInvalidTransition):
			invalid++
		}
	}
	assert.Equal(t, 1, successes, "exactly one approval wins")
	assert.Equal(t, 1, invalid, "the loser observes the advanced state")
	assert.Equal(t, StateChecked, f.repo.states[100])
	assert.Len(t, f.history.entries, 1, "side effects recorded once")
}

func TestApplyStoreFailure(t *testing.T) {
	f := newFixture(StateDraft)
	f.grants[author().Key()] = []authz.Capability{authz.ContentAdd}
	f.repo.fail = true

	_, err := f.svc.Apply(context.Background(), author(), 1, 100, StatePending, "")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestGetCheckStateProjection(t *testing.T) {
	f := newFixture(StatePending)
	f.grants[reviewer().Key()] = []authz.Capability{authz.ContentView, authz.ContentCheck}
	f.grants[author().Key()] = []authz.Capability{authz.ContentView, authz.ContentEdit}

	cs, err := f.svc.GetCheckState(context.Background(), reviewer(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, StatePending, cs.State)
	assert.False(t, cs.Checked)
	require.Len(t, cs.Transitions, 2)
	for _, tr := range cs.Transitions {
		assert.True(t, tr.Allowed, "reviewer may trigger %s", tr.Action)
	}

	cs, err = f.svc.GetCheckState(context.Background(), author(), 1, 100)
	require.NoError(t, err)
	for _, tr := range cs.Transitions {
		assert.False(t, tr.Allowed, "author may not check")
	}

	// Projection is side-effect free.
	assert.Equal(t, StatePending, f.repo.states[100])
	assert.Empty(t, f.history.entries)
}

func TestGetCheckStateRequiresView(t *testing.T) {
	f := newFixture(StateDraft)
	_, err := f.svc.GetCheckState(context.Background(), author(), 1, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestHistoryListing(t *testing.T) {
	f := newFixture(StateDraft)
	f.grants[author().Key()] = []authz.Capability{authz.ContentView, authz.ContentAdd}

	_, err := f.svc.Apply(context.Background(), author(), 1, 100, StatePending, "")
	require.NoError(t, err)
	f.syncState()

	entries, err := f.svc.History(context.Background(), author(), 1, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionSubmit, entries[0].Action)
	assert.Equal(t, StateDraft, entries[0].FromState)
	assert.Equal(t, StatePending, entries[0].ToState)
}
