package control

const (
	MinSteps     = 1
	MaxSteps     = 100
	DefaultSteps = 25

	MinActionsPerStep     = 1
	MaxActionsPerStep     = 10
	DefaultActionsPerStep = 4
)

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ClampSteps keeps a max-steps value in [MinSteps, MaxSteps].
func ClampSteps(n int) int { return clamp(n, MinSteps, MaxSteps) }

// ClampActions keeps a max-actions-per-step value in [MinActionsPerStep, MaxActionsPerStep].
func ClampActions(n int) int { return clamp(n, MinActionsPerStep, MaxActionsPerStep) }
