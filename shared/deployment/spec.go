// Package deployment defines the deployment spec document format and turns parsed
// documents into pipeline steps.
package deployment

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pennsieve/ecs-deployer/shared/command"
	"github.com/pennsieve/ecs-deployer/shared/docker"
	"github.com/pennsieve/ecs-deployer/shared/ecs"
	"github.com/pennsieve/ecs-deployer/shared/pipeline"
	"gopkg.in/yaml.v3"
)

// Spec is one deployment document. Its step groups always execute in this order: images,
// task definitions, tasks, services.
type Spec struct {
	Environment   string `yaml:"environment"`
	RegistryLogin bool   `yaml:"registryLogin"`

	Images          []docker.ImageSpec       `yaml:"images"`
	TaskDefinitions []ecs.TaskDefinitionSpec `yaml:"taskDefinitions"`
	Tasks           []ecs.TaskSpec           `yaml:"tasks"`
	Services        []ecs.ServiceSpec        `yaml:"services"`
}

// FromYAML parses and validates one deployment document. JSON documents parse too since
// YAML is a superset.
func FromYAML(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("error parsing deployment spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) Validate() error {
	var errs []error
	if len(s.Environment) == 0 {
		errs = append(errs, fmt.Errorf("deployment spec is missing an environment"))
	}
	imageNames := map[string]bool{}
	for i, imageSpec := range s.Images {
		if len(imageSpec.Name) == 0 {
			errs = append(errs, fmt.Errorf("images[%d] is missing a name", i))
			continue
		}
		if imageNames[imageSpec.Name] {
			errs = append(errs, fmt.Errorf("image name %q appears more than once", imageSpec.Name))
		}
		imageNames[imageSpec.Name] = true
		if len(imageSpec.Repository) == 0 {
			errs = append(errs, fmt.Errorf("image %q is missing a repository", imageSpec.Name))
		}
		if len(imageSpec.TagCommand) == 0 {
			errs = append(errs, fmt.Errorf("image %q is missing a tagCommand", imageSpec.Name))
		}
		if imageSpec.Build && len(imageSpec.Dockerfile) == 0 {
			errs = append(errs, fmt.Errorf("image %q sets build but is missing a dockerfile", imageSpec.Name))
		}
	}
	for i, taskDefinitionSpec := range s.TaskDefinitions {
		if len(taskDefinitionSpec.Name) == 0 {
			errs = append(errs, fmt.Errorf("taskDefinitions[%d] is missing a name", i))
			continue
		}
		if len(taskDefinitionSpec.Family) == 0 {
			errs = append(errs, fmt.Errorf("task definition %q is missing a family", taskDefinitionSpec.Name))
		}
		if len(taskDefinitionSpec.ContainerDefinitions) == 0 {
			errs = append(errs, fmt.Errorf("task definition %q has no container definitions", taskDefinitionSpec.Name))
		}
	}
	for i, taskSpec := range s.Tasks {
		if len(taskSpec.Name) == 0 {
			errs = append(errs, fmt.Errorf("tasks[%d] is missing a name", i))
			continue
		}
		if len(taskSpec.Config) == 0 {
			errs = append(errs, fmt.Errorf("task %q has no config", taskSpec.Name))
		}
	}
	for i, serviceSpec := range s.Services {
		if len(serviceSpec.Name) == 0 {
			errs = append(errs, fmt.Errorf("services[%d] is missing a name", i))
			continue
		}
		if len(serviceSpec.Cluster) == 0 {
			errs = append(errs, fmt.Errorf("service %q is missing a cluster", serviceSpec.Name))
		}
		if len(serviceSpec.Config) == 0 {
			errs = append(errs, fmt.Errorf("service %q has no config", serviceSpec.Name))
		}
	}
	return errors.Join(errs...)
}

// Steps builds this document's pipeline steps in execution order.
func (s *Spec) Steps(runner command.Runner, client ecs.API, logger *slog.Logger) ([]pipeline.Step, error) {
	var steps []pipeline.Step
	for _, imageSpec := range s.Images {
		steps = append(steps, pipeline.NewImageStep(docker.NewImage(imageSpec, runner, logger)))
	}
	for _, taskDefinitionSpec := range s.TaskDefinitions {
		taskDefinition, err := ecs.NewTaskDefinition(taskDefinitionSpec, client, logger)
		if err != nil {
			return nil, err
		}
		steps = append(steps, pipeline.NewTaskDefinitionStep(taskDefinition))
	}
	for _, taskSpec := range s.Tasks {
		steps = append(steps, pipeline.NewTaskStep(ecs.NewTask(taskSpec, client, logger)))
	}
	for _, serviceSpec := range s.Services {
		steps = append(steps, pipeline.NewServiceStep(ecs.NewService(serviceSpec, client, logger)))
	}
	return steps, nil
}
