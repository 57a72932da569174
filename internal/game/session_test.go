package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MinecAnton209/durak-online-sub001/engine"
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// eventRecorder captures per-player outbound events in place of the hub.
type eventRecorder struct {
	mu     sync.Mutex
	events map[uuid.UUID][]Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{events: make(map[uuid.UUID][]Event)}
}

func (r *eventRecorder) send(playerID uuid.UUID, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[playerID] = append(r.events[playerID], ev)
}

func (r *eventRecorder) lastOfType(playerID uuid.UUID, t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[playerID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == t {
			return evs[i], true
		}
	}
	return Event{}, false
}

func (r *eventRecorder) countOfType(playerID uuid.UUID, t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[playerID] {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func testUser(name string) models.User {
	return models.User{ID: uuid.New(), Name: name, Coins: 1000}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTestSession builds a session with n seated players and a recorder
// wired as the send function. The grace window is long enough that its
// timer never fires inside a test; expiry is driven directly.
func newTestSession(t *testing.T, n int, settings models.Settings) (*Session, []models.User, *eventRecorder) {
	t.Helper()
	settings.Normalize()
	require.NoError(t, settings.Validate())

	users := make([]models.User, n)
	for i := range users {
		users[i] = testUser(string(rune('A' + i)))
	}
	s := NewSession(testLogger(), users[0], settings, time.Hour)
	rec := newEventRecorder()
	s.SendFn = rec.send
	for _, u := range users[1:] {
		require.NoError(t, s.Join(u))
	}
	t.Cleanup(s.Close)
	return s, users, rec
}

// startGame drives a session through force_start and past the dealing
// pause without waiting for the timer.
func startGame(t *testing.T, s *Session, host uuid.UUID) {
	t.Helper()
	require.NoError(t, s.ForceStart(host))
	require.Equal(t, PhaseDealing, s.Phase())
	s.beginPlay()
	require.Equal(t, PhasePlaying, s.Phase())
}

func TestJoinCapacityAndPhase(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{MaxPlayers: 2})

	assert.ErrorIs(t, s.Join(testUser("C")), ErrSessionFull)

	// A seated player joining again is a harmless resume.
	assert.NoError(t, s.Join(users[1]))

	startGame(t, s, users[0].ID)
	assert.ErrorIs(t, s.Join(testUser("D")), ErrSessionStarted)
}

func TestLobbyLeaveRemovesSeatAndTransfersHost(t *testing.T) {
	s, users, _ := newTestSession(t, 3, models.Settings{MaxPlayers: 3})

	require.NoError(t, s.Leave(users[0].ID))

	s.mu.Lock()
	require.Len(t, s.seats, 2)
	assert.Equal(t, 0, s.seats[0].Index)
	assert.Equal(t, 1, s.seats[1].Index)
	assert.True(t, s.seats[0].Host, "host flag moves to the next seat")
	assert.Equal(t, users[1].ID, s.seats[0].User.ID)
	s.mu.Unlock()

	assert.ErrorIs(t, s.Leave(users[0].ID), ErrNotSeated)
}

func TestUpdateSettingsHostOnlyInLobby(t *testing.T) {
	s, users, _ := newTestSession(t, 3, models.Settings{MaxPlayers: 4})

	err := s.UpdateSettings(users[1].ID, models.Settings{DeckSize: 52, MaxPlayers: 4})
	assert.ErrorIs(t, err, ErrNotHost)

	// Shrinking capacity below the seated count is rejected.
	err = s.UpdateSettings(users[0].ID, models.Settings{DeckSize: 36, MaxPlayers: 2})
	assert.ErrorIs(t, err, ErrSessionFull)

	require.NoError(t, s.UpdateSettings(users[0].ID, models.Settings{DeckSize: 52, MaxPlayers: 5}))
	assert.Equal(t, 52, s.Settings().DeckSize)

	startGame(t, s, users[0].ID)
	err = s.UpdateSettings(users[0].ID, models.Settings{DeckSize: 36, MaxPlayers: 5})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestForceStartGuards(t *testing.T) {
	host := testUser("A")
	s := NewSession(testLogger(), host, models.Settings{DeckSize: 36, MaxPlayers: 3}, time.Hour)
	t.Cleanup(s.Close)

	assert.ErrorIs(t, s.ForceStart(host.ID), ErrNotEnoughPlayers)

	second := testUser("B")
	require.NoError(t, s.Join(second))
	assert.ErrorIs(t, s.ForceStart(second.ID), ErrNotHost)

	require.NoError(t, s.ForceStart(host.ID))
	assert.ErrorIs(t, s.ForceStart(host.ID), ErrWrongPhase)
}

func TestGameplayRejectedOutsidePlaying(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{})

	err := s.Move(users[0].ID, engine.Card{Suit: engine.Spades, Rank: engine.Rank(10)})
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, s.ForceStart(users[0].ID))
	// Still dealing: the table is not open yet.
	err = s.Take(users[1].ID)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestMoveRoutesByRole(t *testing.T) {
	s, users, rec := newTestSession(t, 2, models.Settings{})
	startGame(t, s, users[0].ID)

	s.mu.Lock()
	attacker := s.seats[s.eng.Attacker()].User
	defender := s.seats[s.eng.Defender()].User
	card := s.eng.HandOf(s.eng.Attacker())[0]
	s.mu.Unlock()

	// Any card opens the attack; the defender's same call is routed to
	// the defense and judged by the covering rule instead.
	require.NoError(t, s.Move(attacker.ID, card))

	s.mu.Lock()
	undefended := s.eng.Table.Undefended()
	s.mu.Unlock()
	require.Equal(t, 1, undefended)

	require.NoError(t, s.Take(defender.ID))

	ev, ok := rec.lastOfType(attacker.ID, EventGameState)
	require.True(t, ok)
	assert.Empty(t, ev.State.Table, "trick cleared after the take")
}

func TestStateViewHidesOtherHands(t *testing.T) {
	s, users, rec := newTestSession(t, 3, models.Settings{MaxPlayers: 3})
	startGame(t, s, users[0].ID)

	ev, ok := rec.lastOfType(users[0].ID, EventGameState)
	require.True(t, ok)
	require.NotNil(t, ev.State)
	require.Len(t, ev.State.Seats, 3)

	for _, sv := range ev.State.Seats {
		assert.Equal(t, engine.HandSize, sv.HandCount)
		if sv.PlayerID == users[0].ID.String() {
			assert.Len(t, sv.Hand, engine.HandSize)
		} else {
			assert.Nil(t, sv.Hand, "faces of %s leaked to %s", sv.Name, users[0].Name)
		}
	}
	assert.NotNil(t, ev.State.Trump)
	assert.NotEmpty(t, ev.State.AttackerID)
	assert.NotEmpty(t, ev.State.DefenderID)
}

func TestLobbyDisconnectEntersGrace(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{})

	s.HandleDisconnect(users[0].ID)

	s.mu.Lock()
	seat := s.seatOfLocked(users[0].ID)
	require.NotNil(t, seat, "a dropped connection must not tear the lobby seat down")
	assert.Equal(t, SeatGrace, seat.Status)
	assert.True(t, seat.Host, "host flag survives the window untouched")
	s.mu.Unlock()

	// A prompt reconnect finds the seat exactly as it was left.
	require.NoError(t, s.HandleReconnect(users[0].ID))
	s.mu.Lock()
	assert.Equal(t, SeatConnected, s.seatOfLocked(users[0].ID).Status)
	assert.True(t, s.seatOfLocked(users[0].ID).Host)
	s.mu.Unlock()
}

func TestLobbyGraceExpiryRemovesSeat(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{MaxPlayers: 2})

	s.HandleDisconnect(users[0].ID)
	s.expireGrace(users[0].ID)

	s.mu.Lock()
	assert.Nil(t, s.seatOfLocked(users[0].ID))
	require.Len(t, s.seats, 1)
	assert.True(t, s.seats[0].Host, "host flag moves on expiry, not before")
	s.mu.Unlock()

	assert.ErrorIs(t, s.HandleReconnect(users[0].ID), ErrNotSeated)

	// The freed slot is joinable again.
	require.NoError(t, s.Join(testUser("C")))
}

func TestDisconnectGraceThenReconnect(t *testing.T) {
	s, users, rec := newTestSession(t, 2, models.Settings{})
	startGame(t, s, users[0].ID)

	s.mu.Lock()
	attacker := s.seats[s.eng.Attacker()].User
	defender := s.seats[s.eng.Defender()].User
	card := s.eng.HandOf(s.eng.Attacker())[0]
	s.mu.Unlock()

	s.HandleDisconnect(defender.ID)
	s.mu.Lock()
	assert.Equal(t, SeatGrace, s.seatOfLocked(defender.ID).Status)
	s.mu.Unlock()

	// Play continues against the absent seat.
	require.NoError(t, s.Move(attacker.ID, card))

	before := rec.countOfType(defender.ID, EventGameState)
	require.NoError(t, s.HandleReconnect(defender.ID))

	s.mu.Lock()
	assert.Equal(t, SeatConnected, s.seatOfLocked(defender.ID).Status)
	s.mu.Unlock()

	// Resumption replays a complete snapshot including the mid-trick table.
	require.Greater(t, rec.countOfType(defender.ID, EventGameState), before)
	ev, ok := rec.lastOfType(defender.ID, EventGameState)
	require.True(t, ok)
	assert.Len(t, ev.State.Table, 1)
}

func TestGraceExpiryForfeitsAndSettles(t *testing.T) {
	s, users, rec := newTestSession(t, 2, models.Settings{Bet: 100})

	var result *models.MatchResult
	s.OnFinish = func(res models.MatchResult) { result = &res }

	startGame(t, s, users[0].ID)

	s.mu.Lock()
	defender := s.seats[s.eng.Defender()].User
	attacker := s.seats[s.eng.Attacker()].User
	s.mu.Unlock()

	s.HandleDisconnect(defender.ID)
	s.expireGrace(defender.ID)

	assert.Equal(t, PhaseFinished, s.Phase())
	require.NotNil(t, result)
	require.NotNil(t, result.Loser)
	assert.Equal(t, defender.ID, *result.Loser)
	assert.Equal(t, []uuid.UUID{attacker.ID}, result.Winners)
	assert.Equal(t, int64(100), result.Deltas[attacker.ID])
	assert.Equal(t, int64(-100), result.Deltas[defender.ID])

	_, ok := rec.lastOfType(attacker.ID, EventGameOver)
	assert.True(t, ok)

	// The vacated seat is gone for good.
	assert.ErrorIs(t, s.Join(defender), ErrSeatVacated)
	assert.ErrorIs(t, s.HandleReconnect(defender.ID), ErrSeatVacated)
}

func TestMidGameLeaveForfeitsThreePlayer(t *testing.T) {
	s, users, _ := newTestSession(t, 3, models.Settings{MaxPlayers: 3})
	startGame(t, s, users[0].ID)

	s.mu.Lock()
	idle := -1
	for i := range s.seats {
		if r := s.eng.RoleOf(i); r != engine.RoleAttacker && r != engine.RoleDefender {
			idle = i
			break
		}
	}
	leaver := s.seats[idle].User
	s.mu.Unlock()

	require.NoError(t, s.Leave(leaver.ID))

	// With two live seats the game goes on.
	assert.Equal(t, PhasePlaying, s.Phase())
	s.mu.Lock()
	assert.True(t, s.eng.IsOut(idle))
	assert.Equal(t, SeatVacated, s.seatOfLocked(leaver.ID).Status)
	s.mu.Unlock()
}

// finishedSession fabricates a settled three-player table so rematch flows
// can be tested without scripting a full game.
func finishedSession(t *testing.T) (*Session, []models.User, *eventRecorder) {
	t.Helper()
	s, users, rec := newTestSession(t, 3, models.Settings{MaxPlayers: 3})
	startGame(t, s, users[0].ID)
	s.mu.Lock()
	s.phase = PhaseFinished
	s.result = &models.MatchResult{SessionID: s.ID, Winners: []uuid.UUID{users[0].ID, users[1].ID}}
	s.mu.Unlock()
	return s, users, rec
}

func TestRematchConsensus(t *testing.T) {
	s, users, rec := finishedSession(t)

	var spawned *Session
	s.OnRematch = func(old *Session) { spawned = old }

	require.NoError(t, s.VoteRematch(users[0].ID))
	assert.Equal(t, PhaseRematch, s.Phase())
	ev, ok := rec.lastOfType(users[0].ID, EventRematchUpdate)
	require.True(t, ok)
	assert.Equal(t, 1, ev.Rematch.Votes)
	assert.Equal(t, 3, ev.Rematch.Total)
	assert.Nil(t, spawned)

	require.NoError(t, s.VoteRematch(users[1].ID))
	require.NoError(t, s.VoteRematch(users[2].ID))

	require.Same(t, s, spawned)
	ev, ok = rec.lastOfType(users[0].ID, EventRematchUpdate)
	require.True(t, ok)
	assert.Equal(t, 3, ev.Rematch.Votes)
	assert.Equal(t, 3, ev.Rematch.Total)
}

func TestRematchElectorateShrinksOnDisconnect(t *testing.T) {
	s, users, _ := finishedSession(t)

	fired := false
	s.OnRematch = func(*Session) { fired = true }

	require.NoError(t, s.VoteRematch(users[0].ID))
	require.NoError(t, s.VoteRematch(users[1].ID))
	assert.False(t, fired)

	// The holdout drops; the remaining yes votes are now unanimous.
	s.HandleDisconnect(users[2].ID)
	assert.True(t, fired)
}

func TestRematchRejectsOutsiders(t *testing.T) {
	s, users, _ := finishedSession(t)

	assert.ErrorIs(t, s.VoteRematch(uuid.New()), ErrNotSeated)

	s.HandleDisconnect(users[2].ID)
	s.expireGrace(users[2].ID)
	assert.ErrorIs(t, s.VoteRematch(users[2].ID), ErrSeatVacated)
}

func TestVoteBeforeFinishRejected(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{})
	assert.ErrorIs(t, s.VoteRematch(users[0].ID), ErrWrongPhase)
}

func TestChatRingIsBounded(t *testing.T) {
	s, users, rec := newTestSession(t, 2, models.Settings{})

	for i := 0; i < chatLogCapacity+10; i++ {
		require.NoError(t, s.Chat(users[0].ID, "chat.message", map[string]any{"n": i}))
	}

	s.mu.Lock()
	assert.Len(t, s.chat, chatLogCapacity)
	assert.Equal(t, 10, s.chat[0].Options["n"], "oldest entries evicted first")
	s.mu.Unlock()

	assert.Equal(t, chatLogCapacity+10, rec.countOfType(users[1].ID, EventLogEntry))
	assert.ErrorIs(t, s.Chat(uuid.New(), "chat.message", nil), ErrNotSeated)
}

func TestMusicHostOnly(t *testing.T) {
	s, users, rec := newTestSession(t, 2, models.Settings{})

	err := s.SetMusic(users[1].ID, models.MusicState{TrackID: "trk"})
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, s.SetMusic(users[0].ID, models.MusicState{TrackID: "trk", Playing: true, Position: 12.5}))
	ev, ok := rec.lastOfType(users[1].ID, EventMusicSync)
	require.True(t, ok)
	assert.Equal(t, "trk", ev.Music.TrackID)
	assert.NotZero(t, ev.Music.UpdatedAt)
}

func TestAbandonmentClock(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{})
	startGame(t, s, users[0].ID)

	now := time.Now()
	assert.False(t, s.Abandoned(now, time.Minute))

	s.HandleDisconnect(users[0].ID)
	assert.False(t, s.Abandoned(now, time.Minute), "one seat still connected")

	s.HandleDisconnect(users[1].ID)
	assert.False(t, s.Abandoned(now, time.Minute), "absence just began")
	assert.True(t, s.Abandoned(now.Add(2*time.Minute), time.Minute))

	// Any reconnection resets the clock.
	require.NoError(t, s.HandleReconnect(users[0].ID))
	assert.False(t, s.Abandoned(now.Add(2*time.Minute), time.Minute))
}

func TestHistorianReceivesTimeline(t *testing.T) {
	s, users, _ := newTestSession(t, 2, models.Settings{})

	var mu sync.Mutex
	var recs []ActionRecord
	s.Historian = historianFunc(func(rec ActionRecord) error {
		mu.Lock()
		recs = append(recs, rec)
		mu.Unlock()
		return nil
	})

	startGame(t, s, users[0].ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recs) >= 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	seen := make(map[string]bool)
	for _, rec := range recs {
		assert.Equal(t, s.ID, rec.SessionID)
		seen[rec.ActionType] = true
	}
	assert.True(t, seen["game_start"])
	assert.True(t, seen["play_begin"])
}

type historianFunc func(rec ActionRecord) error

func (f historianFunc) Record(_ context.Context, rec ActionRecord) error { return f(rec) }
