package autosave

import "time"

// Status is the save lifecycle state shown to the user.
// Exactly one value holds at a time.
type Status string

const (
	// StatusIdle means no save activity and nothing to report.
	StatusIdle Status = "idle"

	// StatusSaving means a remote write is in flight.
	StatusSaving Status = "saving"

	// StatusSaved means the last write succeeded. Decays back to idle after
	// a short display period.
	StatusSaved Status = "saved"

	// StatusError means the last write failed for a non-conflict reason.
	StatusError Status = "error"

	// StatusConflict means the remote copy diverged and the user must pick
	// a side before saving continues.
	StatusConflict Status = "conflict"

	// StatusOffline means edits are parked in a local draft until
	// connectivity returns.
	StatusOffline Status = "offline"
)

// String implements fmt.Stringer.
func (s Status) String() string { return string(s) }

// State is a read-only snapshot of the controller. Only the latest snapshot
// is retained; subscribers receive one per transition.
type State struct {
	Status            Status
	LastSaved         time.Time // zero means never saved this session
	HasUnsavedChanges bool
	Online            bool
}
