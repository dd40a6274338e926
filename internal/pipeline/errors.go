package pipeline

import "fmt"

// Phase names a pipeline stage.
type Phase string

const (
	PhaseResolve  Phase = "resolve"
	PhaseParse    Phase = "parse"
	PhaseBuild    Phase = "build"
	PhaseValidate Phase = "validate"
	PhaseRender   Phase = "render"
)

// PhaseError wraps the error that stopped a run with the stage and,
// where one applies, the target it failed for.
type PhaseError struct {
	Phase  Phase
	Target string
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Target != "" && e.Phase != PhaseResolve {
		return fmt.Sprintf("%s %s: %v", e.Phase, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
