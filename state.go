package prioexec

// State is the tri-state lifecycle shared by tasks and workers.
//
// For a Task it tracks polling progress: Idle (not being polled, either
// never started or last poll returned Pending), Active (inside a poll on
// some worker) and Finished (the future returned Ready).
//
// For a Worker it tracks activity: Idle (waiting for a message), Active
// (running a task) and Finished (the receive loop has exited).
//
// The two usages are independent; a worker's state never mirrors the
// state of the task it runs.
type State uint8

const (
	Idle State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Active:
		return "Active"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}
