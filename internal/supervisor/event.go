package supervisor

// Stream identifies which pipe a chunk came from.
type Stream uint8

const (
	Stdout Stream = iota + 1
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// ExitStatus is the terminal state of a process. Code is -1 when the process
// did not exit on its own.
type ExitStatus struct {
	Code     int
	Signal   string
	Abnormal bool
	Err      error
}

// Event is either an output chunk or the final exit.
type Event struct {
	Stream Stream
	Data   []byte
	Exit   *ExitStatus
}

func (e Event) IsExit() bool {
	return e.Exit != nil
}
