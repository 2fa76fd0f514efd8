package prioexec

import (
	"cmp"
)

type messageKind uint8

const (
	// msgDrain is a shutdown sentinel ranked below every run message.
	msgDrain messageKind = iota
	msgRun
	// msgShutdown is a shutdown sentinel ranked above every run message.
	msgShutdown
)

// message is the unit exchanged over the pool's sorted channel: either a
// request to poll a task, or a shutdown sentinel.
type message struct {
	kind messageKind
	task *Task
}

func runMessage(t *Task) message { return message{kind: msgRun, task: t} }

func shutdownMessage(mode ShutdownMode) message {
	if mode == ShutdownDrain {
		return message{kind: msgDrain}
	}
	return message{kind: msgShutdown}
}

func (m message) isRun() bool { return m.kind == msgRun }

func (m message) String() string {
	switch m.kind {
	case msgRun:
		return "Run"
	case msgShutdown:
		return "Shutdown"
	case msgDrain:
		return "Drain"
	default:
		return "Unknown"
	}
}

// compareMessages orders messages for dispatch. Sentinels rank by kind;
// two run messages compare by the live priority of their tasks.
func compareMessages(a, b message) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	if a.kind != msgRun {
		return 0
	}
	return cmp.Compare(a.task.Priority(), b.task.Priority())
}

// newMessageChannel creates the queue of a pool. Task priorities are live,
// so the queue reorders whenever env's rank epoch moves.
func newMessageChannel(env *runtimeEnv) (*Sender[message], *Receiver[message]) {
	return NewRerankingChannel(compareMessages, env.rankEpoch.Load)
}
