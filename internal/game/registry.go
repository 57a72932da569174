package game

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// ActionRecord is one entry of a session's canonical action timeline.
type ActionRecord struct {
	SessionID   uuid.UUID      `json:"sessionId"`
	ActionIndex int            `json:"actionIndex"`
	ActorID     uuid.UUID      `json:"actorId"`
	ActionType  string         `json:"actionType"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// Historian archives action records. Implementations must be safe for
// concurrent use; errors are logged by the caller and never fatal.
type Historian interface {
	Record(ctx context.Context, rec ActionRecord) error
}

// Store is the collaborator holding player balances and match archives.
type Store interface {
	ApplyMatchResult(ctx context.Context, res models.MatchResult) error
	SaveMatchSummary(ctx context.Context, res models.MatchResult) error
}

// PublicGame is one row of the public browsing list. Invite codes are
// never exposed here.
type PublicGame struct {
	GameID     string `json:"gameId"`
	HostName   string `json:"hostName"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	DeckSize   int    `json:"deckSize"`
	Bet        int64  `json:"bet"`
	Phase      Phase  `json:"phase"`
}

// RegistryConfig carries the registry's collaborators and tuning.
type RegistryConfig struct {
	Log           *logrus.Logger
	Store         Store     // optional
	Historian     Historian // optional
	GraceWindow   time.Duration
	AbsenceWindow time.Duration
	SweepInterval time.Duration
}

// Registry owns the map from session id to Session. All lookups go through
// it; sessions never reference each other. Its lock covers only the maps —
// per-session serialization lives inside each Session, so a slow action on
// one table never delays another.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byInvite map[string]uuid.UUID

	log  *logrus.Logger
	cfg  RegistryConfig
	send func(playerID uuid.UUID, ev Event)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRegistry builds the registry and starts the background sweep.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	if cfg.GraceWindow == 0 {
		cfg.GraceWindow = 30 * time.Second
	}
	if cfg.AbsenceWindow == 0 {
		cfg.AbsenceWindow = 5 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	r := &Registry{
		sessions: make(map[uuid.UUID]*Session),
		byInvite: make(map[string]uuid.UUID),
		log:      cfg.Log,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// SetSender wires the outbound delivery function (the websocket hub).
// Must be called before any session is created.
func (r *Registry) SetSender(send func(playerID uuid.UUID, ev Event)) {
	r.send = send
}

// Close stops the sweeper and destroys every session.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Destroy(id)
	}
}

// Create validates the settings and opens a new lobby with the host seated.
func (r *Registry) Create(host models.User, settings models.Settings) (*Session, error) {
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Private {
		settings.InviteCode = newInviteCode()
	} else {
		settings.InviteCode = ""
	}

	s := NewSession(r.log, host, settings, r.cfg.GraceWindow)
	r.wireSession(s)

	r.mu.Lock()
	r.sessions[s.ID] = s
	if settings.InviteCode != "" {
		r.byInvite[settings.InviteCode] = s.ID
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"session": s.ID, "host": host.ID}).Info("session created")
	return s, nil
}

// wireSession attaches the registry-side callbacks.
func (r *Registry) wireSession(s *Session) {
	s.SendFn = func(playerID uuid.UUID, ev Event) {
		if r.send != nil {
			r.send(playerID, ev)
		}
	}
	s.Historian = r.cfg.Historian
	s.OnFinish = func(res models.MatchResult) { r.settleMatch(res) }
	s.OnRematch = func(old *Session) { go r.spawnRematch(old) }
}

// settleMatch pushes coin deltas and the archive row, fire-and-forget.
// Store failures are logged and retried never — the archive is advisory,
// the session must not block on it.
func (r *Registry) settleMatch(res models.MatchResult) {
	if r.cfg.Store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.cfg.Store.ApplyMatchResult(ctx, res); err != nil {
			r.log.WithError(err).WithField("session", res.SessionID).Error("apply match result failed")
		}
		if err := r.cfg.Store.SaveMatchSummary(ctx, res); err != nil {
			r.log.WithError(err).WithField("session", res.SessionID).Error("save match summary failed")
		}
	}()
}

// spawnRematch builds the successor session: identical membership,
// settings and host, fresh everything else. The old session is destroyed
// once members are notified. Runs outside the old session's lock.
func (r *Registry) spawnRematch(old *Session) {
	members, hostID := old.RematchSeats()
	if len(members) == 0 {
		r.Destroy(old.ID)
		return
	}

	settings := old.Settings()
	hostIdx := 0
	for i, m := range members {
		if m.User.ID == hostID {
			hostIdx = i
			break
		}
	}

	next := NewSession(r.log, members[hostIdx].User, settings, r.cfg.GraceWindow)
	r.wireSession(next)
	next.mu.Lock()
	for i, m := range members {
		if i == hostIdx {
			continue
		}
		next.seats = append(next.seats, &Seat{User: m.User, Index: len(next.seats), Status: SeatConnected})
	}
	next.mu.Unlock()

	r.mu.Lock()
	r.sessions[next.ID] = next
	if settings.InviteCode != "" {
		r.byInvite[settings.InviteCode] = next.ID
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"old": old.ID, "new": next.ID}).Info("rematch session spawned")

	// Tell every member where to find the new table, then hand them its
	// full lobby state.
	next.mu.Lock()
	next.broadcastLocked(Event{Type: EventLobbyCreated, GameID: next.ID.String()})
	next.broadcastStateLocked()
	next.mu.Unlock()

	// Members who sat out the old table's end in grace stay in grace here,
	// with a fresh window running against the new seat.
	for _, m := range members {
		if m.Status == SeatGrace {
			next.HandleDisconnect(m.User.ID)
		}
	}

	r.Destroy(old.ID)
}

// Get looks a session up by id.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetByInvite resolves a private session from its invite code.
func (r *Registry) GetByInvite(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byInvite[code]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// FindByPlayer returns the session currently holding a live or grace seat
// for the player. Used to restore the connection/seat binding on resume.
func (r *Registry) FindByPlayer(playerID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	for _, s := range candidates {
		if s.HasPlayer(playerID) {
			return s, true
		}
	}
	return nil, false
}

// Destroy removes and closes a session.
func (r *Registry) Destroy(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		if code := s.Settings().InviteCode; code != "" && r.byInvite[code] == id {
			delete(r.byInvite, code)
		}
	}
	r.mu.Unlock()

	if ok {
		s.Close()
		r.log.WithField("session", id).Info("session destroyed")
	}
}

// ListFilter narrows the public lobby listing. Zero values match anything.
type ListFilter struct {
	DeckSize int   // 36 or 52
	MaxBet   int64 // highest acceptable stake
}

func (f ListFilter) matches(g PublicGame) bool {
	if f.DeckSize != 0 && g.DeckSize != f.DeckSize {
		return false
	}
	if f.MaxBet > 0 && g.Bet > f.MaxBet {
		return false
	}
	return true
}

// ListPublic returns browsable lobbies: public sessions still joinable,
// narrowed by the filter.
func (r *Registry) ListPublic(filter ListFilter) []PublicGame {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	out := make([]PublicGame, 0, len(candidates))
	for _, s := range candidates {
		s.mu.Lock()
		if s.settings.Private || s.phase != PhaseLobby {
			s.mu.Unlock()
			continue
		}
		row := PublicGame{
			GameID:     s.ID.String(),
			Players:    len(s.seats),
			MaxPlayers: s.settings.MaxPlayers,
			DeckSize:   s.settings.DeckSize,
			Bet:        s.settings.Bet,
			Phase:      s.phase,
		}
		for _, seat := range s.seats {
			if seat.Host {
				row.HostName = seat.User.Name
				break
			}
		}
		s.mu.Unlock()
		if !filter.matches(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// sweepLoop periodically reclaims abandoned sessions and expired rematch
// waits. Sweep failures only log; the next tick retries.
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	for _, s := range candidates {
		if s.Abandoned(now, r.cfg.AbsenceWindow) {
			r.log.WithField("session", s.ID).Info("sweeping abandoned session")
			r.Destroy(s.ID)
			continue
		}
		if s.RematchExpired(now) {
			r.log.WithField("session", s.ID).Info("sweeping expired rematch wait")
			r.Destroy(s.ID)
		}
	}
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newInviteCode returns a 6-character code from an unambiguous alphabet.
func newInviteCode() string {
	buf := make([]byte, 6)
	for i := range buf {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			// crypto/rand failing means the process has bigger problems;
			// fall back to a fixed char rather than panic.
			buf[i] = inviteAlphabet[0]
			continue
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf)
}
