package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Kind identifies which deployment entity a step wraps. The set is closed: the deployment
// spec format produces exactly these four, in this order.
type Kind string

const (
	KindImage          Kind = "image"
	KindTaskDefinition Kind = "taskDefinition"
	KindTask           Kind = "task"
	KindService        Kind = "service"
)

// Step is one unit of deployment work. Handle returns a short human-readable result for
// logging.
type Step interface {
	Name() string
	Kind() Kind
	Handle(ctx context.Context, run *Run) (string, error)
}

// Run carries state across the steps of one pipeline execution. Images maps an image step's
// name to the tagged repository name it pushed, for later task definition steps.
type Run struct {
	ID     string
	Images map[string]string
}

func NewRun() *Run {
	return &Run{
		ID:     uuid.NewString(),
		Images: map[string]string{},
	}
}

// StepError is a failed step. It identifies the step that aborted the run and wraps the
// underlying failure.
type StepError struct {
	StepName string
	StepKind Kind
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %s failed: %v", e.StepKind, e.StepName, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline executes steps one at a time in the order given. The first failure aborts the
// run; later steps are never attempted.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

func NewPipeline(steps []Step, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		steps:  steps,
		logger: logger,
	}
}

func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for i, step := range p.steps {
		logger := p.logger.With(
			slog.String("step", step.Name()),
			slog.String("kind", string(step.Kind())),
		)
		logger.Info("step starting", slog.Int("position", i+1), slog.Int("of", len(p.steps)))
		result, err := step.Handle(ctx, run)
		if err != nil {
			return &StepError{StepName: step.Name(), StepKind: step.Kind(), Err: err}
		}
		logger.Info("step complete", slog.String("result", result))
	}
	return nil
}
