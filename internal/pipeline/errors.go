package pipeline

import (
	"fmt"

	"github.com/ignite/retail-rfm/internal/domain"
)

// StageError reports which stage of a run failed.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage domain.Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
