package ecs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// DefaultNetworkMode is used when a task definition spec does not name a network mode.
const DefaultNetworkMode = "bridge"

// TaskDefinitionSpec describes one task definition registration. Name identifies the step in
// logs; Family is the identity as far as ECS is concerned. The container definition, volume,
// and placement constraint mappings use the ECS API's own key names.
type TaskDefinitionSpec struct {
	Name                 string           `yaml:"name"`
	Family               string           `yaml:"family"`
	TaskRoleARN          string           `yaml:"taskRoleARN"`
	NetworkMode          string           `yaml:"networkMode"`
	ContainerDefinitions []map[string]any `yaml:"containerDefinitions"`
	Volumes              []map[string]any `yaml:"volumes"`
	PlacementConstraints []map[string]any `yaml:"placementConstraints"`
	// DeregisterPreviousDefinitions defaults to true when nil
	DeregisterPreviousDefinitions *bool `yaml:"deregisterPreviousDefinitions"`
}

type TaskDefinition struct {
	name                 string
	family               string
	taskRoleARN          string
	networkMode          types.NetworkMode
	containerDefinitions []types.ContainerDefinition
	volumes              []types.Volume
	placementConstraints []types.TaskDefinitionPlacementConstraint
	deregisterPrevious   bool
	client               API
	logger               *slog.Logger
}

func NewTaskDefinition(spec TaskDefinitionSpec, client API, logger *slog.Logger) (*TaskDefinition, error) {
	containerDefinitions, err := decodeConfigSlice[types.ContainerDefinition](spec.ContainerDefinitions)
	if err != nil {
		return nil, fmt.Errorf("error decoding container definitions of task definition %s: %w", spec.Name, err)
	}
	volumes, err := decodeConfigSlice[types.Volume](spec.Volumes)
	if err != nil {
		return nil, fmt.Errorf("error decoding volumes of task definition %s: %w", spec.Name, err)
	}
	placementConstraints, err := decodeConfigSlice[types.TaskDefinitionPlacementConstraint](spec.PlacementConstraints)
	if err != nil {
		return nil, fmt.Errorf("error decoding placement constraints of task definition %s: %w", spec.Name, err)
	}
	networkMode := spec.NetworkMode
	if len(networkMode) == 0 {
		networkMode = DefaultNetworkMode
	}
	deregisterPrevious := true
	if spec.DeregisterPreviousDefinitions != nil {
		deregisterPrevious = *spec.DeregisterPreviousDefinitions
	}
	return &TaskDefinition{
		name:                 spec.Name,
		family:               spec.Family,
		taskRoleARN:          spec.TaskRoleARN,
		networkMode:          types.NetworkMode(networkMode),
		containerDefinitions: containerDefinitions,
		volumes:              volumes,
		placementConstraints: placementConstraints,
		deregisterPrevious:   deregisterPrevious,
		client:               client,
		logger:               logger.With(slog.String("taskDefinition", spec.Name)),
	}, nil
}

func (t *TaskDefinition) Name() string {
	return t.name
}

func (t *TaskDefinition) Family() string {
	return t.family
}

// SetImages replaces every container definition's image with its entry in the given map,
// keyed by the image value the container was configured with. A key with no entry fails
// with MissingImageMapping.
func (t *TaskDefinition) SetImages(images map[string]string) error {
	for idx := range t.containerDefinitions {
		key := aws.ToString(t.containerDefinitions[idx].Image)
		mapped, ok := images[key]
		if !ok {
			return &MissingImageMapping{Key: key}
		}
		t.containerDefinitions[idx].Image = aws.String(mapped)
	}
	return nil
}

// DeregisterExistingDefinitions deregisters every revision currently registered under this
// family. This is irreversible and runs before the replacement registration, so a failed
// registration leaves the family with no active revisions.
func (t *TaskDefinition) DeregisterExistingDefinitions(ctx context.Context) error {
	listIn := &ecs.ListTaskDefinitionsInput{FamilyPrefix: aws.String(t.family)}
	var arns []string
	for morePages := true; morePages; morePages = listIn.NextToken != nil {
		out, err := t.client.ListTaskDefinitions(ctx, listIn)
		if err != nil {
			return serviceCallError("ListTaskDefinitions", err)
		}
		arns = append(arns, out.TaskDefinitionArns...)
		listIn.NextToken = out.NextToken
	}
	for _, arn := range arns {
		t.logger.Info("deregistering task definition", slog.String("arn", arn))
		in := &ecs.DeregisterTaskDefinitionInput{TaskDefinition: aws.String(arn)}
		if _, err := t.client.DeregisterTaskDefinition(ctx, in); err != nil {
			return serviceCallError("DeregisterTaskDefinition", err)
		}
	}
	return nil
}

// Register registers a new revision from this entity's current attributes and returns
// family:revision of the result.
func (t *TaskDefinition) Register(ctx context.Context) (string, error) {
	in := &ecs.RegisterTaskDefinitionInput{
		Family:               aws.String(t.family),
		ContainerDefinitions: t.containerDefinitions,
		NetworkMode:          t.networkMode,
		Volumes:              t.volumes,
		PlacementConstraints: t.placementConstraints,
	}
	if len(t.taskRoleARN) > 0 {
		in.TaskRoleArn = aws.String(t.taskRoleARN)
	}
	out, err := t.client.RegisterTaskDefinition(ctx, in)
	if err != nil {
		return "", serviceCallError("RegisterTaskDefinition", err)
	}
	if out.TaskDefinition == nil {
		return "", fmt.Errorf("unexpected response: RegisterTaskDefinition returned no task definition")
	}
	familyRevision := fmt.Sprintf("%s:%d", aws.ToString(out.TaskDefinition.Family), out.TaskDefinition.Revision)
	t.logger.Info("registered task definition", slog.String("familyRevision", familyRevision))
	return familyRevision, nil
}

// Handle deregisters this family's previous revisions if the spec asks for that, then always
// registers the new revision and returns its family:revision.
func (t *TaskDefinition) Handle(ctx context.Context) (string, error) {
	if t.deregisterPrevious {
		if err := t.DeregisterExistingDefinitions(ctx); err != nil {
			return "", err
		}
	}
	return t.Register(ctx)
}
