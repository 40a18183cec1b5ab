package download

// ProgressLevel classifies a progress event for display and filtering.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "VERBOSE"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSuccess:
		return "SUCCESS"
	default:
		return "INFO"
	}
}

// ProgressEvent is a single log line emitted during a run. Consumers
// receive events through the callback passed to NewManager.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Sink receives aggregate progress updates. The total is announced once
// after the metadata phase; Advance is called once per terminal file
// outcome, successful or not.
type Sink interface {
	Init(total int)
	Advance(n int)
}
