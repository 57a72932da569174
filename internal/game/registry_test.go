package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

func newTestRegistry(t *testing.T) (*Registry, *eventRecorder) {
	t.Helper()
	rec := newEventRecorder()
	r := NewRegistry(RegistryConfig{
		Log:           testLogger(),
		GraceWindow:   time.Hour,
		AbsenceWindow: time.Hour,
		SweepInterval: time.Hour,
	})
	r.SetSender(rec.send)
	t.Cleanup(r.Close)
	return r, rec
}

func TestCreateValidatesSettings(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create(testUser("A"), models.Settings{DeckSize: 40})
	assert.Error(t, err)

	_, err = r.Create(testUser("A"), models.Settings{Bet: -5})
	assert.ErrorIs(t, err, models.ErrBadBet)

	// Six seats need more cards than the small deck holds.
	_, err = r.Create(testUser("A"), models.Settings{DeckSize: 36, MaxPlayers: 6})
	assert.Error(t, err)

	s, err := r.Create(testUser("A"), models.Settings{})
	require.NoError(t, err)
	assert.Equal(t, 36, s.Settings().DeckSize)
	assert.Equal(t, 2, s.Settings().MaxPlayers)
}

func TestInviteCodeResolution(t *testing.T) {
	r, _ := newTestRegistry(t)

	private, err := r.Create(testUser("A"), models.Settings{Private: true})
	require.NoError(t, err)
	code := private.Settings().InviteCode
	require.Len(t, code, 6)

	got, ok := r.GetByInvite(code)
	require.True(t, ok)
	assert.Same(t, private, got)

	_, ok = r.GetByInvite("NOPE42")
	assert.False(t, ok)

	public, err := r.Create(testUser("B"), models.Settings{})
	require.NoError(t, err)
	assert.Empty(t, public.Settings().InviteCode)

	r.Destroy(private.ID)
	_, ok = r.GetByInvite(code)
	assert.False(t, ok, "invite mapping torn down with the session")
}

func TestListPublicSkipsPrivateAndStarted(t *testing.T) {
	r, _ := newTestRegistry(t)

	hostA := testUser("Alice")
	open, err := r.Create(hostA, models.Settings{MaxPlayers: 4, Bet: 50})
	require.NoError(t, err)

	_, err = r.Create(testUser("Bob"), models.Settings{Private: true})
	require.NoError(t, err)

	carol := testUser("Carol")
	started, err := r.Create(carol, models.Settings{})
	require.NoError(t, err)
	require.NoError(t, started.Join(testUser("Dave")))
	require.NoError(t, started.ForceStart(carol.ID))

	list := r.ListPublic(ListFilter{})
	require.Len(t, list, 1)
	assert.Equal(t, open.ID.String(), list[0].GameID)
	assert.Equal(t, "Alice", list[0].HostName)
	assert.Equal(t, 1, list[0].Players)
	assert.Equal(t, 4, list[0].MaxPlayers)
	assert.Equal(t, int64(50), list[0].Bet)
}

func TestListPublicFilter(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create(testUser("A"), models.Settings{DeckSize: 36, MaxPlayers: 3, Bet: 50})
	require.NoError(t, err)
	_, err = r.Create(testUser("B"), models.Settings{DeckSize: 52, MaxPlayers: 3, Bet: 500})
	require.NoError(t, err)

	assert.Len(t, r.ListPublic(ListFilter{}), 2)
	assert.Len(t, r.ListPublic(ListFilter{DeckSize: 52}), 1)
	assert.Len(t, r.ListPublic(ListFilter{MaxBet: 100}), 1)
	assert.Empty(t, r.ListPublic(ListFilter{DeckSize: 52, MaxBet: 100}))
}

func TestFindByPlayer(t *testing.T) {
	r, _ := newTestRegistry(t)

	host := testUser("A")
	s, err := r.Create(host, models.Settings{})
	require.NoError(t, err)

	got, ok := r.FindByPlayer(host.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.FindByPlayer(uuid.New())
	assert.False(t, ok)

	r.Destroy(s.ID)
	_, ok = r.FindByPlayer(host.ID)
	assert.False(t, ok)
}

func TestSweepReclaimsAbandonedAndExpired(t *testing.T) {
	r, _ := newTestRegistry(t)

	abandoned, err := r.Create(testUser("A"), models.Settings{})
	require.NoError(t, err)
	abandoned.mu.Lock()
	abandoned.emptySince = time.Now().Add(-2 * time.Hour)
	abandoned.mu.Unlock()

	stale, err := r.Create(testUser("B"), models.Settings{})
	require.NoError(t, err)
	stale.mu.Lock()
	stale.phase = PhaseRematch
	stale.rematchDeadline = time.Now().Add(-time.Minute)
	stale.mu.Unlock()

	alive, err := r.Create(testUser("C"), models.Settings{})
	require.NoError(t, err)

	r.sweep(time.Now())

	_, ok := r.Get(abandoned.ID)
	assert.False(t, ok)
	_, ok = r.Get(stale.ID)
	assert.False(t, ok)
	_, ok = r.Get(alive.ID)
	assert.True(t, ok)
}

func TestRematchSpawnsSuccessorSession(t *testing.T) {
	r, rec := newTestRegistry(t)

	host := testUser("A")
	others := []models.User{testUser("B"), testUser("C")}

	old, err := r.Create(host, models.Settings{MaxPlayers: 3, Bet: 25})
	require.NoError(t, err)
	for _, u := range others {
		require.NoError(t, old.Join(u))
	}
	require.NoError(t, old.ForceStart(host.ID))
	old.beginPlay()

	old.mu.Lock()
	old.phase = PhaseFinished
	old.result = &models.MatchResult{SessionID: old.ID}
	old.mu.Unlock()

	require.NoError(t, old.VoteRematch(host.ID))
	require.NoError(t, old.VoteRematch(others[0].ID))
	require.NoError(t, old.VoteRematch(others[1].ID))

	var next *Session
	require.Eventually(t, func() bool {
		s, ok := r.FindByPlayer(host.ID)
		if !ok || s.ID == old.ID {
			return false
		}
		next = s
		return true
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, PhaseLobby, next.Phase())
	assert.Equal(t, int64(25), next.Settings().Bet)
	for _, u := range append([]models.User{host}, others...) {
		assert.True(t, next.HasPlayer(u.ID))
	}

	// Host carries over and the old session is reclaimed.
	next.mu.Lock()
	assert.Equal(t, host.ID, next.seats[0].User.ID)
	assert.True(t, next.seats[0].Host)
	next.mu.Unlock()

	require.Eventually(t, func() bool {
		_, ok := r.Get(old.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	ev, ok := rec.lastOfType(others[0].ID, EventLobbyCreated)
	require.True(t, ok)
	assert.Equal(t, next.ID.String(), ev.GameID)
}

func TestRematchCarriesGraceSeats(t *testing.T) {
	r, _ := newTestRegistry(t)

	host := testUser("A")
	others := []models.User{testUser("B"), testUser("C")}
	old, err := r.Create(host, models.Settings{MaxPlayers: 3})
	require.NoError(t, err)
	for _, u := range others {
		require.NoError(t, old.Join(u))
	}
	require.NoError(t, old.ForceStart(host.ID))
	old.beginPlay()

	old.mu.Lock()
	old.phase = PhaseFinished
	old.result = &models.MatchResult{SessionID: old.ID}
	old.mu.Unlock()

	// One member drops before the vote; the two connected seats reach
	// consensus without them.
	old.HandleDisconnect(others[1].ID)
	require.NoError(t, old.VoteRematch(host.ID))
	require.NoError(t, old.VoteRematch(others[0].ID))

	var next *Session
	require.Eventually(t, func() bool {
		s, ok := r.FindByPlayer(host.ID)
		if !ok || s.ID == old.ID {
			return false
		}
		s.mu.Lock()
		seat := s.seatOfLocked(others[1].ID)
		carried := seat != nil && seat.Status == SeatGrace && seat.graceTimer != nil
		s.mu.Unlock()
		if carried {
			next = s
		}
		return carried
	}, time.Second, 5*time.Millisecond, "grace status must follow the seat onto the successor")

	next.mu.Lock()
	assert.Equal(t, SeatConnected, next.seatOfLocked(host.ID).Status)
	assert.Equal(t, SeatConnected, next.seatOfLocked(others[0].ID).Status)
	assert.False(t, next.seatOfLocked(others[1].ID).RematchVote)
	next.mu.Unlock()
}
