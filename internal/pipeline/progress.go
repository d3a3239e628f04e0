package pipeline

import "time"

// Stage describes the phase a script is in.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StageExecute   Stage = "execute"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the script is waiting for its turn.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is in progress.
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusSkipped marks scripts that never ran because an earlier one failed.
	StatusSkipped Status = "skipped"
)

// Event reports progress for one script slot. Position is -1 for events
// about the run as a whole.
type Event struct {
	Position int
	Label    string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from the run
// loop and from fetch goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	f(evt)
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
