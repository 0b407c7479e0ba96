package agent

type ExitReason string

const (
	ReasonFinished        ExitReason = "task finished"
	ReasonMaxSteps        ExitReason = "max steps reached"
	ReasonInterrupted     ExitReason = "interrupted"
	ReasonTooManyFailures ExitReason = "too many consecutive failures"
)

func (r ExitReason) Humanize() string {
	switch r {
	case ReasonFinished:
		return "model explicitly finished the task"
	case ReasonMaxSteps:
		return "step limit reached"
	case ReasonInterrupted:
		return "execution was interrupted"
	case ReasonTooManyFailures:
		return "the agent failed several steps in a row"
	default:
		return string(r)
	}
}
