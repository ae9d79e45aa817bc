package domain

// Phase is the named pipeline state of a project.
type Phase string

const (
	PhasePhotos          Phase = "photos"
	PhaseScan            Phase = "scan"
	PhaseAnalyzing       Phase = "analyzing"
	PhaseIntake          Phase = "intake"
	PhaseGeneration      Phase = "generation"
	PhaseGenerationError Phase = "generation_error"
	PhaseSelection       Phase = "selection"
	PhaseIteration       Phase = "iteration"
	PhaseIterationError  Phase = "iteration_error"
	PhaseApproval        Phase = "approval"
	PhaseShopping        Phase = "shopping"
	PhaseShoppingError   Phase = "shopping_error"
	PhaseCompleted       Phase = "completed"
	PhaseAbandoned       Phase = "abandoned"
	PhaseCancelled       Phase = "cancelled"
)

// Phases lists every phase in pipeline order, terminals last.
var Phases = []Phase{
	PhasePhotos,
	PhaseScan,
	PhaseAnalyzing,
	PhaseIntake,
	PhaseGeneration,
	PhaseGenerationError,
	PhaseSelection,
	PhaseIteration,
	PhaseIterationError,
	PhaseApproval,
	PhaseShopping,
	PhaseShoppingError,
	PhaseCompleted,
	PhaseAbandoned,
	PhaseCancelled,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further signal can change the phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAbandoned || p == PhaseCancelled
}

// AwaitsUser reports whether the phase is a bounded wait on human input.
func (p Phase) AwaitsUser() bool {
	switch p {
	case PhasePhotos, PhaseScan, PhaseIntake,
		PhaseGenerationError, PhaseSelection,
		PhaseIteration, PhaseIterationError,
		PhaseApproval, PhaseShoppingError:
		return true
	}
	return false
}

// Restartable reports whether a start-over signal is legal in p.
func (p Phase) Restartable() bool {
	switch p {
	case PhaseIntake, PhaseGeneration, PhaseGenerationError,
		PhaseSelection, PhaseIteration, PhaseIterationError, PhaseApproval:
		return true
	}
	return false
}

// ErrorPhase returns the error phase paired with an activity phase.
func (p Phase) ErrorPhase() (Phase, bool) {
	switch p {
	case PhaseGeneration:
		return PhaseGenerationError, true
	case PhaseIteration:
		return PhaseIterationError, true
	case PhaseShopping:
		return PhaseShoppingError, true
	}
	return "", false
}

// RetryPhase returns the phase a retry signal re-enters from an error phase.
func (p Phase) RetryPhase() (Phase, bool) {
	switch p {
	case PhaseGenerationError:
		return PhaseGeneration, true
	case PhaseIterationError:
		return PhaseIteration, true
	case PhaseShoppingError:
		return PhaseShopping, true
	}
	return "", false
}
