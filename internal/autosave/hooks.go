package autosave

import "time"

// Result describes how one save attempt resolved.
type Result struct {
	// Forced is true for ForceSave, Flush, reconnect resumes, and conflict
	// resolution; false for debounced saves.
	Forced bool

	// Offline is true when the attempt took the offline branch. The save
	// function was not invoked.
	Offline bool

	// Conflict is true when the save function reported a version conflict.
	Conflict bool

	// Duration covers the save function call only. Zero for offline skips.
	Duration time.Duration

	// Err is the save function's error, nil on success and offline skips.
	Err error
}

// Hooks observes save attempts and draft writes for notification and
// telemetry. Callbacks run on whichever goroutine drove the attempt and
// must not block. All methods may be called concurrently.
type Hooks interface {
	// SaveStarted fires when a remote attempt begins, after the transition
	// to saving. It does not fire for offline skips.
	SaveStarted()

	// SaveFinished fires once per attempt, after the resulting transition.
	SaveFinished(result Result)

	// BackupWritten fires after a draft snapshot is persisted, with the
	// marshaled payload size.
	BackupWritten(key string, size int)

	// BackupFailed fires when a draft snapshot cannot be written, read, or
	// removed. The controller has already swallowed the error.
	BackupFailed(key string, err error)
}

// NopHooks is a Hooks implementation that ignores every event. Embed it to
// implement only the callbacks you care about.
type NopHooks struct{}

func (NopHooks) SaveStarted()                 {}
func (NopHooks) SaveFinished(Result)          {}
func (NopHooks) BackupWritten(string, int)    {}
func (NopHooks) BackupFailed(string, error)   {}

var _ Hooks = NopHooks{}
