package test

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// MockECSAPI implements the deployer's ECS API interface. Each operation appends its name to
// Calls and then delegates to the corresponding Func when one is set; a nil Func returns an
// empty output, except for RegisterTaskDefinition, which echoes the family back with
// revision 1 so that register calls succeed by default.
type MockECSAPI struct {
	Calls []string

	ListTaskDefinitionsFunc      func(params *ecs.ListTaskDefinitionsInput) (*ecs.ListTaskDefinitionsOutput, error)
	DeregisterTaskDefinitionFunc func(params *ecs.DeregisterTaskDefinitionInput) (*ecs.DeregisterTaskDefinitionOutput, error)
	RegisterTaskDefinitionFunc   func(params *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error)
	RunTaskFunc                  func(params *ecs.RunTaskInput) (*ecs.RunTaskOutput, error)
	ListServicesFunc             func(params *ecs.ListServicesInput) (*ecs.ListServicesOutput, error)
	UpdateServiceFunc            func(params *ecs.UpdateServiceInput) (*ecs.UpdateServiceOutput, error)
}

func NewMockECSAPI() *MockECSAPI {
	return &MockECSAPI{}
}

func (m *MockECSAPI) ListTaskDefinitions(_ context.Context, params *ecs.ListTaskDefinitionsInput, _ ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error) {
	m.Calls = append(m.Calls, "ListTaskDefinitions")
	if m.ListTaskDefinitionsFunc == nil {
		return &ecs.ListTaskDefinitionsOutput{}, nil
	}
	return m.ListTaskDefinitionsFunc(params)
}

func (m *MockECSAPI) DeregisterTaskDefinition(_ context.Context, params *ecs.DeregisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error) {
	m.Calls = append(m.Calls, "DeregisterTaskDefinition")
	if m.DeregisterTaskDefinitionFunc == nil {
		return &ecs.DeregisterTaskDefinitionOutput{}, nil
	}
	return m.DeregisterTaskDefinitionFunc(params)
}

func (m *MockECSAPI) RegisterTaskDefinition(_ context.Context, params *ecs.RegisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error) {
	m.Calls = append(m.Calls, "RegisterTaskDefinition")
	if m.RegisterTaskDefinitionFunc == nil {
		return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &types.TaskDefinition{
			Family:   params.Family,
			Revision: 1,
		}}, nil
	}
	return m.RegisterTaskDefinitionFunc(params)
}

func (m *MockECSAPI) RunTask(_ context.Context, params *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	m.Calls = append(m.Calls, "RunTask")
	if m.RunTaskFunc == nil {
		return &ecs.RunTaskOutput{}, nil
	}
	return m.RunTaskFunc(params)
}

func (m *MockECSAPI) ListServices(_ context.Context, params *ecs.ListServicesInput, _ ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	m.Calls = append(m.Calls, "ListServices")
	if m.ListServicesFunc == nil {
		return &ecs.ListServicesOutput{}, nil
	}
	return m.ListServicesFunc(params)
}

func (m *MockECSAPI) UpdateService(_ context.Context, params *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	m.Calls = append(m.Calls, "UpdateService")
	if m.UpdateServiceFunc == nil {
		return &ecs.UpdateServiceOutput{}, nil
	}
	return m.UpdateServiceFunc(params)
}
