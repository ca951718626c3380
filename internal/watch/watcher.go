// Package watch runs the ban/expiry watcher: a continuously-running
// listener on account-row changes plus a per-request entitlement check.
// The watcher only emits typed events on its bus; navigation and other
// reactions belong to subscribers, never to the watcher itself.
package watch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"
	"vidiooh/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// State is the watcher's view of an account.
type State string

const (
	StateChecking State = "checking"
	StateActive   State = "active"
	StateBanned   State = "banned"
	StateExpired  State = "expired"
)

// EventKind identifies a watcher transition worth telling subscribers
// about.
type EventKind string

const (
	EventBanned     EventKind = "banned"
	EventReinstated EventKind = "reinstated"
	EventExpired    EventKind = "expired"
)

// Event is a typed entitlement transition for one account.
type Event struct {
	Kind      EventKind `json:"kind"`
	AccountID string    `json:"account_id"`
	At        time.Time `json:"at"`
}

// notifyChannel is the Postgres NOTIFY channel a trigger on the accounts
// table publishes {id, status} payloads to on every update.
const notifyChannel = "account_events"

// accountNotification is the trigger payload shape.
type accountNotification struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// lastState only exists to suppress duplicate events, so forgetting an
// idle account is harmless. Entries older than stateRetention are pruned
// once the map reaches maxTrackedStates; until then the map stays as-is.
const (
	maxTrackedStates = 4096
	stateRetention   = time.Hour
)

type stateEntry struct {
	state State
	at    time.Time
}

// Watcher resolves entitlement state per request and follows account-row
// changes pushed over LISTEN/NOTIFY for the life of the process.
type Watcher struct {
	pool         *pgxpool.Pool
	accounts     repository.AccountRepository
	entitlements service.EntitlementService
	now          func() time.Time
	logger       zerolog.Logger

	mu        sync.RWMutex
	subs      map[string]map[chan Event]struct{}
	lastState map[string]stateEntry
}

func New(pool *pgxpool.Pool, accounts repository.AccountRepository, entitlements service.EntitlementService, logger zerolog.Logger) *Watcher {
	return &Watcher{
		pool:         pool,
		accounts:     accounts,
		entitlements: entitlements,
		now:          time.Now,
		logger:       logger.With().Str("service", "Watcher").Logger(),
		subs:         make(map[string]map[chan Event]struct{}),
		lastState:    make(map[string]stateEntry),
	}
}

// Check runs the Checking transition for an account: it resolves the
// entitlement and settles on Active, Banned, or Expired. On Expired the
// account's plan fields are downgraded to FREE, the cached snapshot is
// invalidated, and the entitlement is re-resolved so the caller sees the
// post-downgrade state.
func (w *Watcher) Check(ctx context.Context, accountID string) (*model.Entitlement, State, error) {
	ent, err := w.entitlements.Resolve(ctx, accountID)
	if err != nil {
		return nil, StateChecking, err
	}

	if ent.Status == model.StatusBanned {
		w.transition(accountID, StateBanned)
		return ent, StateBanned, nil
	}

	if ent.Expired(w.now()) {
		w.logger.Info().Str("account_id", accountID).Time("expired_at", *ent.ExpiresAt).Msg("Plan expired, downgrading to FREE")
		if err := w.accounts.DowngradeToFree(ctx, accountID); err != nil {
			// Downgrade failed; keep the stale entitlement rather than
			// granting the expired plan: fail closed.
			w.logger.Error().Err(err).Str("account_id", accountID).Msg("Expiry downgrade failed")
			return nil, StateExpired, service.ErrEntitlementUnavailable
		}
		w.entitlements.Invalidate(ctx, accountID)
		w.emit(Event{Kind: EventExpired, AccountID: accountID, At: w.now()})
		w.transition(accountID, StateExpired)

		ent, err = w.entitlements.Resolve(ctx, accountID)
		if err != nil {
			return nil, StateExpired, err
		}
		return ent, StateExpired, nil
	}

	w.transition(accountID, StateActive)
	return ent, StateActive, nil
}

// Subscribe delivers this account's events until the context ends.
func (w *Watcher) Subscribe(ctx context.Context, accountID string) <-chan Event {
	ch := make(chan Event, 8)
	w.mu.Lock()
	if w.subs[accountID] == nil {
		w.subs[accountID] = make(map[chan Event]struct{})
	}
	w.subs[accountID][ch] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs[accountID], ch)
		if len(w.subs[accountID]) == 0 {
			delete(w.subs, accountID)
		}
		w.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Run holds the LISTEN connection for the life of the process,
// reconnecting with backoff on failure.
func (w *Watcher) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := w.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Dur("retry_in", backoff).Msg("Account listener disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	w.logger.Info().Str("channel", notifyChannel).Msg("Listening for account changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var note accountNotification
		if err := json.Unmarshal([]byte(n.Payload), &note); err != nil {
			w.logger.Warn().Str("payload", n.Payload).Msg("Dropping malformed account notification")
			continue
		}
		w.handleChange(ctx, note)
	}
}

// handleChange reacts to a pushed account-row change: the snapshot cache
// is always invalidated, and ban/unban transitions emit events.
func (w *Watcher) handleChange(ctx context.Context, note accountNotification) {
	w.entitlements.Invalidate(ctx, note.ID)

	banned := note.Status == string(model.StatusBanned)
	w.mu.RLock()
	prev := w.lastState[note.ID].state
	w.mu.RUnlock()

	switch {
	case banned && prev != StateBanned:
		w.transition(note.ID, StateBanned)
		w.emit(Event{Kind: EventBanned, AccountID: note.ID, At: w.now()})
	case !banned && prev == StateBanned:
		w.transition(note.ID, StateActive)
		w.emit(Event{Kind: EventReinstated, AccountID: note.ID, At: w.now()})
	}
}

func (w *Watcher) transition(accountID string, s State) {
	w.mu.Lock()
	if len(w.lastState) >= maxTrackedStates {
		w.pruneLocked()
	}
	w.lastState[accountID] = stateEntry{state: s, at: w.now()}
	w.mu.Unlock()
}

func (w *Watcher) pruneLocked() {
	cutoff := w.now().Add(-stateRetention)
	for id, e := range w.lastState {
		if e.at.Before(cutoff) {
			delete(w.lastState, id)
		}
	}
}

func (w *Watcher) emit(e Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for ch := range w.subs[e.AccountID] {
		select {
		case ch <- e:
		default:
			// Slow subscriber; drop rather than block the listener.
		}
	}
}
