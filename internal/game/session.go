package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MinecAnton209/durak-online-sub001/engine"
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseDealing  Phase = "dealing"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
	PhaseRematch  Phase = "rematch_pending"
)

const (
	// dealingDelay is the non-interactive pause between the deal and the
	// first playable turn, giving clients time to animate.
	dealingDelay = 1500 * time.Millisecond

	// rematchWindow bounds how long a finished session may sit collecting
	// rematch votes before the sweeper reclaims it.
	rematchWindow = 2 * time.Minute

	// chatLogCapacity bounds the in-session chat/log ring.
	chatLogCapacity = 50
)

// Session-level rejection reasons. Gameplay reasons come from the engine.
var (
	ErrNotHost          = errors.New("not_host")
	ErrWrongPhase       = errors.New("wrong_phase")
	ErrSessionFull      = errors.New("session_full")
	ErrSessionStarted   = errors.New("session_started")
	ErrAlreadySeated    = errors.New("already_seated")
	ErrNotSeated        = errors.New("not_seated")
	ErrSeatVacated      = errors.New("seat_vacated")
	ErrNotEnoughPlayers = errors.New("not_enough_players")
)

// Reason extracts the stable reason code carried by a rejection.
func Reason(err error) string {
	var re *engine.RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return err.Error()
}

// Session is the root aggregate for one table. All mutation goes through
// its mutex, one action at a time; this serialization is the correctness
// guarantee for concurrent seats. Broadcast callbacks are invoked with the
// lock held and must not re-enter the session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	log      *logrus.Entry
	settings models.Settings
	phase    Phase
	seats    []*Seat
	eng      *engine.Game
	chat     []models.LogEntry
	music    models.MusicState
	result   *models.MatchResult

	emptySince      time.Time // zero while any seat is connected
	rematchDeadline time.Time
	rematchSpawned  bool
	actionIndex     int
	dealTimer       *time.Timer
	graceWindow     time.Duration

	// SendFn delivers an event to one player's live connection, if any.
	SendFn func(playerID uuid.UUID, ev Event)
	// OnFinish receives the match result exactly once per game.
	OnFinish func(res models.MatchResult)
	// OnRematch spawns the successor session when every connected seat
	// has voted yes.
	OnRematch func(old *Session)
	// Historian records the canonical action timeline, fire-and-forget.
	Historian Historian
}

// NewSession seats the host at index 0. Settings must be validated by the
// caller (the registry does this at creation time).
func NewSession(log *logrus.Logger, host models.User, settings models.Settings, graceWindow time.Duration) *Session {
	id := uuid.New()
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		log:         log.WithField("session", id),
		settings:    settings,
		phase:       PhaseLobby,
		graceWindow: graceWindow,
	}
	s.seats = append(s.seats, &Seat{User: host, Index: 0, Host: true, Status: SeatConnected})
	return s
}

// Settings returns a copy of the table settings.
func (s *Session) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// HasPlayer reports whether the player occupies a non-vacated seat.
func (s *Session) HasPlayer(playerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat := s.seatOfLocked(playerID)
	return seat != nil && seat.Status != SeatVacated
}

// ---------------------------------------------------------------------------
// Lobby operations
// ---------------------------------------------------------------------------

// Join seats a new player. A player already holding a seat in grace is
// routed through the reconnection path instead.
func (s *Session) Join(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seat := s.seatOfLocked(user.ID); seat != nil {
		if seat.Status == SeatVacated {
			return ErrSeatVacated
		}
		// Idempotent resume.
		s.reconnectLocked(seat)
		return nil
	}
	if s.phase != PhaseLobby {
		return ErrSessionStarted
	}
	if len(s.seats) >= s.settings.MaxPlayers {
		return ErrSessionFull
	}

	seat := &Seat{User: user, Index: len(s.seats), Status: SeatConnected}
	s.seats = append(s.seats, seat)
	s.touchPresenceLocked()

	s.logAction(user.ID, "player_join", map[string]any{"name": user.Name})
	s.appendLogLocked(models.LogEntry{Key: "log.playerJoined", Options: map[string]any{"name": user.Name}})
	s.sendToSeatLocked(seat, Event{Type: EventJoinSuccess, GameID: s.ID.String(), PlayerID: user.ID.String()})
	s.broadcastLocked(Event{Type: EventPlayerJoined, GameID: s.ID.String(), Player: &PlayerInfo{ID: user.ID.String(), Name: user.Name}})
	s.broadcastStateLocked()
	return nil
}

// Leave tears the seat down. In the lobby the seat is removed outright;
// mid-game it forfeits per the vacancy rule.
func (s *Session) Leave(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(playerID)
}

func (s *Session) leaveLocked(playerID uuid.UUID) error {
	seat := s.seatOfLocked(playerID)
	if seat == nil || seat.Status == SeatVacated {
		return ErrNotSeated
	}
	seat.stopGraceTimer()
	s.logAction(playerID, "player_leave", nil)

	if s.phase == PhaseLobby {
		s.removeSeatLocked(seat)
	} else {
		seat.Status = SeatVacated
		if s.phase == PhaseDealing || s.phase == PhasePlaying {
			s.eng.ForfeitSeat(seat.Index)
		}
		s.ensureHostLocked()
	}
	s.touchPresenceLocked()

	s.appendLogLocked(models.LogEntry{Key: "log.playerLeft", Options: map[string]any{"name": seat.User.Name}})
	s.broadcastLocked(Event{Type: EventPlayerLeft, GameID: s.ID.String(), Player: &PlayerInfo{ID: playerID.String(), Name: seat.User.Name}})

	if (s.phase == PhaseDealing || s.phase == PhasePlaying) && s.eng.Over() {
		s.finishGameLocked()
		return nil
	}
	if s.phase == PhaseRematch {
		s.checkRematchLocked()
	}
	s.broadcastStateLocked()
	return nil
}

// UpdateSettings applies host-only edits while the session is still a lobby.
func (s *Session) UpdateSettings(playerID uuid.UUID, settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(playerID); err != nil {
		return err
	}
	if s.phase != PhaseLobby {
		return ErrWrongPhase
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.MaxPlayers < len(s.seats) {
		return ErrSessionFull
	}
	// Visibility and invite code are fixed at creation.
	settings.Private = s.settings.Private
	settings.InviteCode = s.settings.InviteCode
	s.settings = settings

	s.logAction(playerID, "settings_update", map[string]any{"deckSize": settings.DeckSize, "maxPlayers": settings.MaxPlayers, "bet": settings.Bet})
	s.broadcastStateLocked()
	return nil
}

// ForceStart moves lobby → dealing. Host only, two seats minimum. The deal
// itself is validated and executed here; the dealing phase is a short
// server-driven pause before play opens.
func (s *Session) ForceStart(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(playerID); err != nil {
		return err
	}
	if s.phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.seats) < engine.MinSeats {
		return ErrNotEnoughPlayers
	}

	eng, err := engine.NewGame(engine.Config{
		DeckSize: engine.DeckSize(s.settings.DeckSize),
		Seats:    len(s.seats),
	})
	if err != nil {
		return err
	}
	if err := eng.Deal(); err != nil {
		return err
	}
	s.eng = eng
	s.phase = PhaseDealing

	s.logAction(playerID, "game_start", map[string]any{"seats": len(s.seats), "trump": s.eng.TrumpCard().String()})
	s.appendLogLocked(models.LogEntry{Key: "log.gameStarted"})
	s.broadcastStateLocked()

	s.dealTimer = time.AfterFunc(dealingDelay, s.beginPlay)
	return nil
}

// beginPlay flips dealing → playing once the deal pause elapses.
func (s *Session) beginPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseDealing {
		return
	}
	s.phase = PhasePlaying
	s.logAction(uuid.Nil, "play_begin", nil)
	s.broadcastStateLocked()
}

// ---------------------------------------------------------------------------
// Gameplay operations
// ---------------------------------------------------------------------------

// Move plays a card. The server decides attack versus defense from the
// seat's authoritative role; the client's claim is never consulted.
func (s *Session) Move(playerID uuid.UUID, card engine.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.playingSeatLocked(playerID)
	if err != nil {
		return err
	}
	if s.eng.RoleOf(seat.Index) == engine.RoleDefender {
		err = s.eng.Defend(seat.Index, card)
	} else {
		err = s.eng.Attack(seat.Index, card)
	}
	if err != nil {
		return err
	}
	s.logAction(playerID, "move", map[string]any{"card": card.String()})
	s.afterMutationLocked()
	return nil
}

// Take declines to defend and scoops the table.
func (s *Session) Take(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.playingSeatLocked(playerID)
	if err != nil {
		return err
	}
	if err := s.eng.Take(seat.Index); err != nil {
		return err
	}
	s.logAction(playerID, "take", nil)
	s.appendLogLocked(models.LogEntry{Key: "log.tookCards", Options: map[string]any{"name": seat.User.Name}})
	s.afterMutationLocked()
	return nil
}

// PassTurn declares the attack finished after every card is beaten.
func (s *Session) PassTurn(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.playingSeatLocked(playerID)
	if err != nil {
		return err
	}
	if err := s.eng.Pass(seat.Index); err != nil {
		return err
	}
	s.logAction(playerID, "pass", nil)
	s.afterMutationLocked()
	return nil
}

// afterMutationLocked runs after every accepted gameplay action: finish
// detection first, then a fresh projection to every connected seat.
func (s *Session) afterMutationLocked() {
	if s.eng.Over() {
		s.finishGameLocked()
		return
	}
	s.broadcastStateLocked()
}

// playingSeatLocked resolves the acting seat for a gameplay action.
func (s *Session) playingSeatLocked(playerID uuid.UUID) (*Seat, error) {
	if s.phase != PhasePlaying {
		return nil, ErrWrongPhase
	}
	seat := s.seatOfLocked(playerID)
	if seat == nil {
		return nil, ErrNotSeated
	}
	if seat.Status == SeatVacated {
		return nil, ErrSeatVacated
	}
	return seat, nil
}

// finishGameLocked settles the game: result, coin deltas, projections.
func (s *Session) finishGameLocked() {
	s.phase = PhaseFinished

	res := models.MatchResult{
		SessionID: s.ID,
		Bet:       s.settings.Bet,
		Draw:      s.eng.IsDraw(),
		Deltas:    make(map[uuid.UUID]int64),
	}
	for _, w := range s.eng.Winners() {
		res.Winners = append(res.Winners, s.seats[w].User.ID)
	}
	if l := s.eng.Loser(); l >= 0 {
		id := s.seats[l].User.ID
		res.Loser = &id
	}
	if res.Loser != nil && s.settings.Bet > 0 && len(res.Winners) > 0 {
		res.Deltas[*res.Loser] = -s.settings.Bet
		share := s.settings.Bet / int64(len(res.Winners))
		rem := s.settings.Bet % int64(len(res.Winners))
		for i, w := range res.Winners {
			res.Deltas[w] = share
			if i == 0 {
				res.Deltas[w] += rem
			}
		}
	}
	s.result = &res

	s.logAction(uuid.Nil, "game_over", map[string]any{"draw": res.Draw})
	if res.Draw {
		s.appendLogLocked(models.LogEntry{Key: "log.draw"})
	} else if res.Loser != nil {
		s.appendLogLocked(models.LogEntry{Key: "log.durak", Options: map[string]any{"name": s.seats[s.eng.Loser()].User.Name}})
	}

	if s.OnFinish != nil {
		s.OnFinish(res)
	}
	s.broadcastLocked(Event{Type: EventGameOver, GameID: s.ID.String(), Result: s.resultViewLocked()})
	s.broadcastStateLocked()
}

// ---------------------------------------------------------------------------
// Rematch
// ---------------------------------------------------------------------------

// VoteRematch records a yes vote. The first vote moves finished →
// rematch_pending; consensus among currently connected seats spawns the
// successor session.
func (s *Session) VoteRematch(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFinished && s.phase != PhaseRematch {
		return ErrWrongPhase
	}
	seat := s.seatOfLocked(playerID)
	if seat == nil {
		return ErrNotSeated
	}
	if seat.Status != SeatConnected {
		return ErrSeatVacated
	}
	if s.phase == PhaseFinished {
		s.phase = PhaseRematch
		s.rematchDeadline = time.Now().Add(rematchWindow)
	}
	seat.RematchVote = true
	s.logAction(playerID, "rematch_vote", nil)
	s.checkRematchLocked()
	return nil
}

// checkRematchLocked recounts votes against the connected seats and fires
// the successor spawn on unanimity. Also re-run when connectivity changes
// while rematch_pending: a leaver shrinks the electorate.
func (s *Session) checkRematchLocked() {
	if s.phase != PhaseRematch {
		return
	}
	votes, total := 0, 0
	for _, seat := range s.seats {
		if seat.Status != SeatConnected {
			continue
		}
		total++
		if seat.RematchVote {
			votes++
		}
	}
	s.broadcastLocked(Event{Type: EventRematchUpdate, GameID: s.ID.String(), Rematch: &RematchInfo{Votes: votes, Total: total}})
	if total > 0 && votes == total && !s.rematchSpawned && s.OnRematch != nil {
		// Consensus fires the successor exactly once; later connectivity
		// changes on this session must not spawn a second one.
		s.rematchSpawned = true
		s.OnRematch(s)
	}
}

// RematchSeats returns copies of the seats carried into a successor
// session: every seat that has not been vacated, in rotation order. Grace
// status travels with the seat so a socketless player stays socketless on
// the new table. Called by the registry while spawning; takes the lock
// itself.
func (s *Session) RematchSeats() (seats []Seat, hostID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		if seat.Status == SeatVacated {
			continue
		}
		c := *seat
		c.graceTimer = nil
		c.RematchVote = false
		seats = append(seats, c)
		if seat.Host {
			hostID = seat.User.ID
		}
	}
	return seats, hostID
}

// ---------------------------------------------------------------------------
// Chat, music, state requests
// ---------------------------------------------------------------------------

// Chat appends a log entry. Message is an opaque i18n key plus options;
// the ring keeps the last fifty entries.
func (s *Session) Chat(playerID uuid.UUID, key string, options map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOfLocked(playerID)
	if seat == nil || seat.Status == SeatVacated {
		return ErrNotSeated
	}
	s.appendLogLocked(models.LogEntry{Key: key, Options: options, From: seat.User.Name})
	s.logAction(playerID, "chat", map[string]any{"key": key})
	return nil
}

// SetMusic updates the shared listen-along state. Host only.
func (s *Session) SetMusic(playerID uuid.UUID, st models.MusicState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(playerID); err != nil {
		return err
	}
	st.UpdatedAt = time.Now().UnixMilli()
	s.music = st
	s.broadcastLocked(Event{Type: EventMusicSync, GameID: s.ID.String(), Music: &s.music})
	return nil
}

// SendStateTo pushes a full personalized snapshot to one player, e.g. in
// answer to an explicit state request. Resumption uses the same path, so a
// repeated request is harmless.
func (s *Session) SendStateTo(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOfLocked(playerID)
	if seat == nil {
		return ErrNotSeated
	}
	s.sendStateToSeatLocked(seat)
	return nil
}

// ---------------------------------------------------------------------------
// Connectivity
// ---------------------------------------------------------------------------

// HandleDisconnect reacts to a dropped connection. Every phase starts the
// grace window with hand, role and host flag frozen in place; only the
// window's expiry tears a seat down.
func (s *Session) HandleDisconnect(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOfLocked(playerID)
	if seat == nil || seat.Status != SeatConnected {
		return
	}

	seat.Status = SeatGrace
	s.touchPresenceLocked()
	s.logAction(playerID, "player_disconnect", nil)
	s.log.WithField("player", playerID).Info("seat entered grace period")

	id := playerID
	seat.graceTimer = time.AfterFunc(s.graceWindow, func() { s.expireGrace(id) })

	if s.phase == PhaseRematch {
		s.checkRematchLocked()
	}
	s.broadcastStateLocked()
}

// HandleReconnect restores a seat inside the grace window and replays the
// full filtered state to the returning connection.
func (s *Session) HandleReconnect(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOfLocked(playerID)
	if seat == nil {
		return ErrNotSeated
	}
	if seat.Status == SeatVacated {
		return ErrSeatVacated
	}
	s.reconnectLocked(seat)
	return nil
}

// reconnectLocked is shared by Join-resume and HandleReconnect.
func (s *Session) reconnectLocked(seat *Seat) {
	seat.stopGraceTimer()
	seat.Status = SeatConnected
	s.touchPresenceLocked()
	s.logAction(seat.User.ID, "player_reconnect", nil)

	// Resumption is a complete snapshot, not a diff.
	s.sendStateToSeatLocked(seat)
	s.broadcastStateLocked()
}

// expireGrace tears down a seat whose window ran out. A lobby seat is
// removed outright, freeing its slot; once the deal happened the seat is
// vacated and the forfeiture rule applies.
func (s *Session) expireGrace(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOfLocked(playerID)
	if seat == nil || seat.Status != SeatGrace {
		return
	}
	seat.graceTimer = nil
	s.logAction(playerID, "grace_expired", nil)
	s.appendLogLocked(models.LogEntry{Key: "log.playerLeft", Options: map[string]any{"name": seat.User.Name}})

	if s.phase == PhaseLobby {
		s.removeSeatLocked(seat)
		s.broadcastLocked(Event{Type: EventPlayerLeft, GameID: s.ID.String(), Player: &PlayerInfo{ID: playerID.String(), Name: seat.User.Name}})
		s.broadcastStateLocked()
		return
	}

	seat.Status = SeatVacated
	s.ensureHostLocked()

	if s.phase == PhaseDealing || s.phase == PhasePlaying {
		s.eng.ForfeitSeat(seat.Index)
		if s.eng.Over() {
			s.finishGameLocked()
			return
		}
	}
	if s.phase == PhaseRematch {
		s.checkRematchLocked()
	}
	s.broadcastStateLocked()
}

// ConnectedCount returns the number of live seats.
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCountLocked()
}

// Abandoned reports whether every seat has been without a connection for
// longer than the absence window; such sessions are reclaimed by the sweep.
func (s *Session) Abandoned(now time.Time, absence time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.emptySince.IsZero() && now.Sub(s.emptySince) > absence
}

// RematchExpired reports a rematch_pending session whose vote window ran
// out without consensus.
func (s *Session) RematchExpired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseRematch && now.After(s.rematchDeadline)
}

// Close stops outstanding timers. Called by the registry on destroy.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dealTimer != nil {
		s.dealTimer.Stop()
		s.dealTimer = nil
	}
	for _, seat := range s.seats {
		seat.stopGraceTimer()
	}
}

// ---------------------------------------------------------------------------
// Internal helpers (lock held)
// ---------------------------------------------------------------------------

func (s *Session) seatOfLocked(playerID uuid.UUID) *Seat {
	for _, seat := range s.seats {
		if seat.User.ID == playerID {
			return seat
		}
	}
	return nil
}

func (s *Session) requireHostLocked(playerID uuid.UUID) error {
	seat := s.seatOfLocked(playerID)
	if seat == nil || seat.Status == SeatVacated {
		return ErrNotSeated
	}
	if !seat.Host {
		return ErrNotHost
	}
	return nil
}

// removeSeatLocked drops a lobby seat and compacts indexes. Only legal
// before the deal; afterwards seats are vacated, never removed.
func (s *Session) removeSeatLocked(target *Seat) {
	for i, seat := range s.seats {
		if seat == target {
			s.seats = append(s.seats[:i], s.seats[i+1:]...)
			break
		}
	}
	for i, seat := range s.seats {
		seat.Index = i
	}
	if target.Host {
		s.ensureHostLocked()
	}
}

// ensureHostLocked keeps exactly one live host seat.
func (s *Session) ensureHostLocked() {
	var host *Seat
	for _, seat := range s.seats {
		if seat.Host {
			host = seat
			break
		}
	}
	if host != nil && host.Status != SeatVacated {
		return
	}
	if host != nil {
		host.Host = false
	}
	for _, seat := range s.seats {
		if seat.Status != SeatVacated {
			seat.Host = true
			return
		}
	}
}

func (s *Session) connectedCountLocked() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Status == SeatConnected {
			n++
		}
	}
	return n
}

// touchPresenceLocked maintains the abandonment clock.
func (s *Session) touchPresenceLocked() {
	if s.connectedCountLocked() == 0 {
		if s.emptySince.IsZero() {
			s.emptySince = time.Now()
		}
	} else {
		s.emptySince = time.Time{}
	}
}

func (s *Session) appendLogLocked(entry models.LogEntry) {
	entry.At = time.Now().UnixMilli()
	s.chat = append(s.chat, entry)
	if len(s.chat) > chatLogCapacity {
		s.chat = s.chat[len(s.chat)-chatLogCapacity:]
	}
	s.broadcastLocked(Event{Type: EventLogEntry, GameID: s.ID.String(), Log: &entry})
}

func (s *Session) sendToSeatLocked(seat *Seat, ev Event) {
	if s.SendFn == nil || seat.Status != SeatConnected {
		return
	}
	s.SendFn(seat.User.ID, ev)
}

// broadcastLocked fans an event out to every connected seat.
func (s *Session) broadcastLocked(ev Event) {
	for _, seat := range s.seats {
		s.sendToSeatLocked(seat, ev)
	}
}

// broadcastStateLocked re-projects and pushes the personalized snapshot to
// every connected seat. Every canonical mutation ends here, so all seats
// observe transitions in the same order.
func (s *Session) broadcastStateLocked() {
	for _, seat := range s.seats {
		s.sendStateToSeatLocked(seat)
	}
}

func (s *Session) sendStateToSeatLocked(seat *Seat) {
	ev := Event{Type: EventGameState, GameID: s.ID.String(), State: s.viewForLocked(seat.User.ID)}
	if s.phase == PhaseLobby {
		ev.Type = EventLobbyState
	}
	s.sendToSeatLocked(seat, ev)
}

// logAction appends to the canonical action timeline via the historian,
// fire-and-forget. Failures are logged and never affect the session.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]any) {
	s.actionIndex++
	if s.Historian == nil {
		return
	}
	rec := ActionRecord{
		SessionID:   s.ID,
		ActionIndex: s.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Historian.Record(ctx, rec); err != nil {
			s.log.WithError(err).WithField("action", rec.ActionType).Warn("historian record failed")
		}
	}()
}
