package pipeline

import (
	"context"

	"github.com/pennsieve/ecs-deployer/shared/docker"
	"github.com/pennsieve/ecs-deployer/shared/ecs"
)

// ImageStep pushes one image and records the pushed tagged repository name under the
// image's name in the run.
type ImageStep struct {
	image *docker.Image
}

func NewImageStep(image *docker.Image) *ImageStep {
	return &ImageStep{image: image}
}

func (s *ImageStep) Name() string {
	return s.image.Name()
}

func (s *ImageStep) Kind() Kind {
	return KindImage
}

func (s *ImageStep) Handle(ctx context.Context, run *Run) (string, error) {
	pushed, err := s.image.Handle(ctx)
	if err != nil {
		return "", err
	}
	run.Images[s.image.Name()] = pushed
	return pushed, nil
}

// TaskDefinitionStep maps the run's pushed images onto the task definition's container
// definitions and registers the new revision.
type TaskDefinitionStep struct {
	taskDefinition *ecs.TaskDefinition
}

func NewTaskDefinitionStep(taskDefinition *ecs.TaskDefinition) *TaskDefinitionStep {
	return &TaskDefinitionStep{taskDefinition: taskDefinition}
}

func (s *TaskDefinitionStep) Name() string {
	return s.taskDefinition.Name()
}

func (s *TaskDefinitionStep) Kind() Kind {
	return KindTaskDefinition
}

func (s *TaskDefinitionStep) Handle(ctx context.Context, run *Run) (string, error) {
	if err := s.taskDefinition.SetImages(run.Images); err != nil {
		return "", err
	}
	return s.taskDefinition.Handle(ctx)
}

// TaskStep runs one one-off task.
type TaskStep struct {
	task *ecs.Task
}

func NewTaskStep(task *ecs.Task) *TaskStep {
	return &TaskStep{task: task}
}

func (s *TaskStep) Name() string {
	return s.task.Name()
}

func (s *TaskStep) Kind() Kind {
	return KindTask
}

func (s *TaskStep) Handle(ctx context.Context, _ *Run) (string, error) {
	return s.task.Handle(ctx)
}

// ServiceStep updates the live services matching one service spec.
type ServiceStep struct {
	service *ecs.Service
}

func NewServiceStep(service *ecs.Service) *ServiceStep {
	return &ServiceStep{service: service}
}

func (s *ServiceStep) Name() string {
	return s.service.Name()
}

func (s *ServiceStep) Kind() Kind {
	return KindService
}

func (s *ServiceStep) Handle(ctx context.Context, _ *Run) (string, error) {
	return s.service.Handle(ctx)
}
