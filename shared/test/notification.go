package test

import (
	"context"

	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

// MockEmailer records the notifications sent through it.
type MockEmailer struct {
	CompleteCalls []*tracking.Record
	FailedCalls   []MockFailedEmail

	SendError error
}

type MockFailedEmail struct {
	Record      *tracking.Record
	DeployError error
}

func NewMockEmailer() *MockEmailer {
	return &MockEmailer{}
}

func (m *MockEmailer) SendDeploymentComplete(_ context.Context, record *tracking.Record) error {
	m.CompleteCalls = append(m.CompleteCalls, record)
	return m.SendError
}

func (m *MockEmailer) SendDeploymentFailed(_ context.Context, record *tracking.Record, deployError error) error {
	m.FailedCalls = append(m.FailedCalls, MockFailedEmail{Record: record, DeployError: deployError})
	return m.SendError
}
