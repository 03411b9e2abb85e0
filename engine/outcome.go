package engine

// Outcome tags the result of a single engine step.
type Outcome int

// Step outcomes.
const (
	// OutcomeCompleted means the step finished and execution may continue.
	OutcomeCompleted Outcome = iota
	// OutcomeHalted means the program reached its termination point.
	OutcomeHalted
	// OutcomeBroke means a BREAK instruction was hit.
	OutcomeBroke
	// OutcomeFailed means the step failed; Err describes why.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeHalted:
		return "halted"
	case OutcomeBroke:
		return "broke"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepResult represents the result of advancing the engine by one step.
type StepResult struct {
	Outcome Outcome

	// Err is set when Outcome is OutcomeFailed.
	Err error
}

// Completed returns a StepResult for a normal step.
func Completed() StepResult {
	return StepResult{Outcome: OutcomeCompleted}
}

// Halted returns a StepResult for a terminated program.
func Halted() StepResult {
	return StepResult{Outcome: OutcomeHalted}
}

// Broke returns a StepResult for a breakpoint.
func Broke() StepResult {
	return StepResult{Outcome: OutcomeBroke}
}

// Failed returns a StepResult wrapping err.
func Failed(err error) StepResult {
	return StepResult{Outcome: OutcomeFailed, Err: err}
}
