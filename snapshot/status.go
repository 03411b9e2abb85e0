// Package snapshot renders the visible state of an engine into immutable
// values: the coarse status, the pipeline occupancy, register and memory
// dumps, statistics and the parsed program.
package snapshot

import "github.com/sarchlab/m64sim/engine"

// Status is the externally visible session status.
type Status string

// Visible statuses.
const (
	StatusReady   Status = "READY"
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
)

// Classify maps an engine status to the visible status. Running and
// stopping both count as running; anything but ready and those is stopped.
func Classify(s engine.Status) Status {
	switch s {
	case engine.StatusReady:
		return StatusReady
	case engine.StatusRunning, engine.StatusStopping:
		return StatusRunning
	default:
		return StatusStopped
	}
}
