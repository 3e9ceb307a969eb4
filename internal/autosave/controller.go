// Package autosave debounces local edits into remote writes. It survives
// disconnection by parking edits in a local draft, resumes when connectivity
// returns, and surfaces version conflicts as an explicit resolution step
// instead of overwriting either side.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/connectivity"
	"github.com/inkwell/inkwell-cli/internal/output"
)

const (
	// DefaultDebounce is the quiet period collapsing bursts of edits into
	// one remote write.
	DefaultDebounce = 2 * time.Second

	// DefaultSavedDecay is how long the saved status is displayed before
	// decaying back to idle.
	DefaultSavedDecay = 2 * time.Second
)

// SaveFunc performs the remote write. Errors are classified with
// output.IsConflict; everything else counts as a plain failure.
type SaveFunc[T any] func(ctx context.Context, value T) error

// LoadFunc fetches the current remote value for conflict display.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Config configures a Controller. Save is required; everything else has a
// usable default.
//
// T must marshal cleanly with encoding/json, since drafts are persisted as
// raw JSON and must survive process restarts.
type Config[T any] struct {
	// Save performs the remote write. Required.
	Save SaveFunc[T]

	// Load fetches the remote value when a conflict is detected. Optional;
	// without it RemoteVersion never reports a value.
	Load LoadFunc[T]

	// Debounce is the quiet period before a debounced save fires.
	// Defaults to DefaultDebounce.
	Debounce time.Duration

	// SavedDecay is how long saved is displayed before decaying to idle.
	// Defaults to DefaultSavedDecay.
	SavedDecay time.Duration

	// BackupKey identifies the offline draft. Empty disables draft
	// persistence. Two controllers must not share a key.
	BackupKey string

	// Backups is the draft store. Nil disables draft persistence.
	Backups *backup.Store

	// DisableOffline turns off all offline behavior: saves are attempted
	// even while the Observer reports offline, and no drafts are written.
	DisableOffline bool

	// Observer supplies connectivity state. Defaults to connectivity.Always().
	Observer connectivity.Observer

	// Hooks receives lifecycle callbacks. Optional.
	Hooks Hooks

	// Clock supplies time and timers. Defaults to SystemClock().
	Clock Clock

	// Logger receives debug/warn lines for swallowed draft errors. Optional.
	Logger *slog.Logger
}

// Controller coalesces Save calls into debounced remote writes.
//
// All methods are safe for concurrent use. Debounced attempts run on the
// timer goroutine; ForceSave, Flush, and ResolveConflict attempts run on the
// caller's goroutine; reconnect resumes run on the observer's goroutine.
// Overlapping forced attempts are not serialized: the last completion wins,
// matching the last-write-wins contract on input.
type Controller[T any] struct {
	saveFn     SaveFunc[T]
	loadFn     LoadFunc[T]
	debounce   time.Duration
	savedDecay time.Duration
	backupKey  string
	backups    *backup.Store
	offlineOK  bool // offline branch enabled
	hooks      Hooks
	clock      Clock
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	pending     *T     // last unsaved payload, replaced never merged
	pendingSeq  uint64 // bumped on every pending write
	remote      *T     // conflict comparison copy
	timer       Timer  // armed debounce timer
	decayTimer  Timer
	generation  uint64 // bumped on every transition; decay timers check it
	closed      bool
	unsubscribe func()
	nextSubID   int
	subs        map[int]func(State)
}

// New creates a Controller. The controller subscribes to the Observer until
// Close is called.
func New[T any](cfg Config[T]) (*Controller[T], error) {
	if cfg.Save == nil {
		return nil, fmt.Errorf("autosave: Config.Save is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SavedDecay <= 0 {
		cfg.SavedDecay = DefaultSavedDecay
	}
	if cfg.Observer == nil {
		cfg.Observer = connectivity.Always()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller[T]{
		saveFn:     cfg.Save,
		loadFn:     cfg.Load,
		debounce:   cfg.Debounce,
		savedDecay: cfg.SavedDecay,
		backupKey:  cfg.BackupKey,
		backups:    cfg.Backups,
		offlineOK:  !cfg.DisableOffline,
		hooks:      cfg.Hooks,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		state: State{
			Status: StatusIdle,
			Online: cfg.Observer.Online(),
		},
		subs: make(map[int]func(State)),
	}

	c.unsubscribe = cfg.Observer.Subscribe(c.onConnectivity)
	return c, nil
}

// Save records data as the pending payload and (re)arms the debounce timer.
// Intermediate values submitted before the timer fires are discarded, never
// queued; only the most recent payload is written.
func (c *Controller[T]) Save(data T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.pending = &data
	c.pendingSeq++
	seq := c.pendingSeq

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.debouncedFire(seq)
	})

	var snap State
	var fns []func(State)
	if !c.state.HasUnsavedChanges {
		c.state.HasUnsavedChanges = true
		snap, fns = c.transitionLocked()
	}
	c.mu.Unlock()

	emit(snap, fns)
}

// ForceSave cancels any armed debounce timer and attempts immediately with
// data, bypassing the quiet period. The remote outcome is observable via
// State and Subscribe, never returned.
func (c *Controller[T]) ForceSave(data T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = &data
	c.pendingSeq++
	seq := c.pendingSeq

	var snap State
	var fns []func(State)
	if !c.state.HasUnsavedChanges {
		c.state.HasUnsavedChanges = true
		snap, fns = c.transitionLocked()
	}
	c.mu.Unlock()

	emit(snap, fns)
	c.attempt(data, seq, true)
}

// Flush force-saves the current pending payload if any. Used on editor exit.
func (c *Controller[T]) Flush() {
	c.mu.Lock()
	if c.closed || c.pending == nil {
		c.mu.Unlock()
		return
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	value := *c.pending
	seq := c.pendingSeq
	c.mu.Unlock()

	c.attempt(value, seq, true)
}

// ResolveConflict resolves a pending conflict. Only meaningful while the
// status is conflict; otherwise a no-op.
//
// useRemote=true discards local changes and transitions to saved without
// invoking the save function; the caller re-displays the remote value. With
// useRemote=false, data is required (the chosen local version) and is
// submitted as a forced attempt.
func (c *Controller[T]) ResolveConflict(useRemote bool, data ...T) {
	c.mu.Lock()
	if c.closed || c.state.Status != StatusConflict {
		c.mu.Unlock()
		return
	}

	if useRemote {
		c.pending = nil
		c.remote = nil
		c.state.Status = StatusSaved
		c.state.HasUnsavedChanges = false
		snap, fns := c.transitionLocked()
		c.armDecayLocked(c.generation)
		c.mu.Unlock()
		emit(snap, fns)
		return
	}

	if len(data) == 0 {
		c.mu.Unlock()
		return
	}
	c.remote = nil
	c.mu.Unlock()

	c.ForceSave(data[0])
}

// RemoteVersion returns the value fetched for the current conflict, if any.
func (c *Controller[T]) RemoteVersion() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		var zero T
		return zero, false
	}
	return *c.remote, true
}

// OfflineBackup returns the persisted draft payload, or false when none
// exists, offline support is disabled, or the draft cannot be decoded.
func (c *Controller[T]) OfflineBackup() (T, bool) {
	var zero T
	if !c.backupEnabled() {
		return zero, false
	}

	record, err := c.backups.Load(c.backupKey)
	if err != nil {
		c.logger.Warn("draft read failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
		return zero, false
	}
	if record == nil {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(record.Data, &value); err != nil {
		c.logger.Warn("draft decode failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
		return zero, false
	}
	return value, true
}

// ClearOfflineBackup deletes the persisted draft unconditionally. Failures
// are swallowed; draft storage is best-effort.
func (c *Controller[T]) ClearOfflineBackup() {
	if c.backups == nil || c.backupKey == "" {
		return
	}
	if err := c.backups.Clear(c.backupKey); err != nil {
		c.logger.Warn("draft clear failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
	}
}

// State returns the current snapshot.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every state change. The current state is
// not replayed; read State first. The returned cancel func removes the
// subscription.
func (c *Controller[T]) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close cancels the armed timers and the connectivity subscription. Timer
// fires after Close are no-ops. In-flight attempts finish but their
// completions are discarded.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.decayTimer != nil {
		c.decayTimer.Stop()
		c.decayTimer = nil
	}
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// debouncedFire runs when the debounce timer expires. The sequence guard
// drops stale fires from timers that lost a Stop race.
func (c *Controller[T]) debouncedFire(seq uint64) {
	c.mu.Lock()
	if c.closed || c.pending == nil || c.pendingSeq != seq {
		c.mu.Unlock()
		return
	}
	value := *c.pending
	c.timer = nil
	c.mu.Unlock()

	c.attempt(value, seq, false)
}

// onConnectivity handles observer transitions for the controller's lifetime.
// Reconnecting with a pending payload performs an immediate forced attempt.
func (c *Controller[T]) onConnectivity(online bool) {
	c.mu.Lock()
	if c.closed || c.state.Online == online {
		c.mu.Unlock()
		return
	}

	c.state.Online = online
	snap, fns := c.transitionLocked()

	var resume *T
	var seq uint64
	if online && c.pending != nil {
		v := *c.pending
		resume = &v
		seq = c.pendingSeq
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
	}
	c.mu.Unlock()

	emit(snap, fns)

	if resume != nil {
		c.attempt(*resume, seq, true)
	}
}

// attempt performs one save attempt with value, shared by the debounced and
// forced paths.
//
// Offline with offline support enabled: park value in the draft store, set
// offline, keep the pending payload, and never invoke the save function.
// Otherwise invoke it and classify the outcome: success, conflict, or error.
func (c *Controller[T]) attempt(value T, seq uint64, forced bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if !c.state.Online && c.offlineOK {
		c.state.Status = StatusOffline
		c.state.HasUnsavedChanges = true
		snap, fns := c.transitionLocked()
		c.mu.Unlock()

		c.writeBackup(value)
		emit(snap, fns)
		c.saveFinished(Result{Forced: forced, Offline: true})
		return
	}

	c.state.Status = StatusSaving
	snap, fns := c.transitionLocked()
	c.mu.Unlock()
	emit(snap, fns)

	if c.hooks != nil {
		c.hooks.SaveStarted()
	}

	start := c.clock.Now()
	err := c.saveFn(context.Background(), value)
	duration := c.clock.Now().Sub(start)

	switch {
	case err == nil:
		c.completeSuccess(seq, forced, duration)
	case output.IsConflict(err):
		c.completeConflict(err, forced, duration)
	default:
		c.completeError(err, value, forced, duration)
	}
}

// completeSuccess applies the saved transition. The pending payload is
// cleared only if no newer Save arrived while the write was in flight;
// otherwise the newer payload stays queued behind its own timer.
func (c *Controller[T]) completeSuccess(seq uint64, forced bool, duration time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.state.Status = StatusSaved
	c.state.LastSaved = c.clock.Now()
	c.remote = nil
	if c.pendingSeq == seq {
		c.pending = nil
		c.state.HasUnsavedChanges = false
	} else {
		c.state.HasUnsavedChanges = true
	}
	snap, fns := c.transitionLocked()
	c.armDecayLocked(c.generation)
	c.mu.Unlock()

	c.clearBackupQuiet()
	emit(snap, fns)
	c.saveFinished(Result{Forced: forced, Duration: duration})
}

// completeConflict applies the conflict transition and fetches the remote
// comparison copy, once per conflict, when a load function is configured.
// The pending payload is left untouched for ResolveConflict.
func (c *Controller[T]) completeConflict(err error, forced bool, duration time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusConflict
	c.state.HasUnsavedChanges = true
	snap, fns := c.transitionLocked()
	c.mu.Unlock()

	emit(snap, fns)

	if c.loadFn != nil {
		remote, lerr := c.loadFn(context.Background())
		if lerr != nil {
			c.logger.Warn("conflict load failed", "error", lerr)
		} else {
			c.mu.Lock()
			if !c.closed && c.state.Status == StatusConflict {
				c.remote = &remote
			}
			c.mu.Unlock()
		}
	}

	c.saveFinished(Result{Forced: forced, Conflict: true, Duration: duration, Err: err})
}

// completeError applies the error transition. The payload is also parked as
// a draft when offline support is enabled, since the failure may have been
// network-related before the observer flipped.
func (c *Controller[T]) completeError(err error, value T, forced bool, duration time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusError
	c.state.HasUnsavedChanges = true
	snap, fns := c.transitionLocked()
	c.mu.Unlock()

	if c.offlineOK {
		c.writeBackup(value)
	}
	emit(snap, fns)
	c.saveFinished(Result{Forced: forced, Duration: duration, Err: err})
}

// armDecayLocked schedules the saved → idle display decay. The generation
// guard keeps a stale timer from clobbering a newer transition. Caller must
// hold mu.
func (c *Controller[T]) armDecayLocked(gen uint64) {
	if c.decayTimer != nil {
		c.decayTimer.Stop()
	}
	c.decayTimer = c.clock.AfterFunc(c.savedDecay, func() {
		c.mu.Lock()
		if c.closed || c.generation != gen || c.state.Status != StatusSaved {
			c.mu.Unlock()
			return
		}
		c.state.Status = StatusIdle
		snap, fns := c.transitionLocked()
		c.mu.Unlock()

		emit(snap, fns)
	})
}

// transitionLocked bumps the generation and snapshots the state and
// subscriber list. Caller must hold mu and invoke the returned callbacks
// after unlocking.
func (c *Controller[T]) transitionLocked() (State, []func(State)) {
	c.generation++
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	return c.state, fns
}

// emit delivers a state snapshot to subscribers outside the lock.
func emit(snap State, fns []func(State)) {
	for _, fn := range fns {
		fn(snap)
	}
}

// backupEnabled reports whether drafts are configured and offline support
// is on.
func (c *Controller[T]) backupEnabled() bool {
	return c.offlineOK && c.backupKey != "" && c.backups != nil
}

// writeBackup persists value as the offline draft. Failures are logged and
// swallowed.
func (c *Controller[T]) writeBackup(value T) {
	if !c.backupEnabled() {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("draft encode failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
		return
	}

	if err := c.backups.Save(c.backupKey, raw, c.clock.Now()); err != nil {
		c.logger.Warn("draft write failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
		return
	}

	c.logger.Debug("draft written", "key", c.backupKey, "bytes", len(raw))
	if c.hooks != nil {
		c.hooks.BackupWritten(c.backupKey, len(raw))
	}
}

// clearBackupQuiet removes the draft after a successful save, best-effort.
func (c *Controller[T]) clearBackupQuiet() {
	if c.backups == nil || c.backupKey == "" {
		return
	}
	if err := c.backups.Clear(c.backupKey); err != nil {
		c.logger.Warn("draft clear failed", "key", c.backupKey, "error", err)
		c.backupFailed(err)
	}
}

func (c *Controller[T]) saveFinished(r Result) {
	if c.hooks != nil {
		c.hooks.SaveFinished(r)
	}
}

func (c *Controller[T]) backupFailed(err error) {
	if c.hooks != nil {
		c.hooks.BackupFailed(c.backupKey, err)
	}
}
