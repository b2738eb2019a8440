package signup

// State is a step of the submission workflow.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Workflow tracks one form session's submission. It is not safe for
// concurrent use; Session serializes access to it.
type Workflow struct {
	state   State
	lastErr error
}

func (w *Workflow) State() State {
	return w.state
}

// LastError is the registrar error behind the Failed state.
func (w *Workflow) LastError() error {
	return w.lastErr
}

// CanBegin reports why a submission may not start, or nil.
func (w *Workflow) CanBegin() error {
	switch w.state {
	case StateSubmitting:
		return ErrSubmissionInProgress
	case StateSucceeded:
		return ErrAlreadySubmitted
	default:
		return nil
	}
}

// Begin moves Idle or Failed to Submitting.
func (w *Workflow) Begin() error {
	if err := w.CanBegin(); err != nil {
		return err
	}
	w.state = StateSubmitting
	w.lastErr = nil
	return nil
}

func (w *Workflow) Succeed() {
	if w.state == StateSubmitting {
		w.state = StateSucceeded
	}
}

func (w *Workflow) Fail(err error) {
	if w.state == StateSubmitting {
		w.state = StateFailed
		w.lastErr = err
	}
}

// Abandon drops an in-flight submission whose caller went away.
func (w *Workflow) Abandon() {
	if w.state == StateSubmitting {
		w.state = StateIdle
	}
}

// Reset returns to Idle unless a submission is outstanding.
func (w *Workflow) Reset() {
	if w.state == StateSubmitting {
		return
	}
	w.state = StateIdle
	w.lastErr = nil
}
