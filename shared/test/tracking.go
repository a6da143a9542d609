package test

import (
	"context"

	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

// MockTrackingStore records the calls made to it and returns the configured errors and
// Latest results.
type MockTrackingStore struct {
	SaveInProgressCalls []*tracking.Record
	CompleteCalls       []*tracking.Record
	FailCalls           []MockFailCall
	LatestCalls         []MockLatestCall

	SaveInProgressError error
	CompleteError       error
	FailError           error

	LatestResult []tracking.EnvironmentIndex
	LatestError  error
}

type MockFailCall struct {
	Record       *tracking.Record
	FailedStep   string
	ErrorMessage string
}

type MockLatestCall struct {
	Environment string
	Limit       int32
}

func NewMockTrackingStore() *MockTrackingStore {
	return &MockTrackingStore{}
}

func (m *MockTrackingStore) SaveInProgress(_ context.Context, record *tracking.Record) error {
	m.SaveInProgressCalls = append(m.SaveInProgressCalls, record)
	return m.SaveInProgressError
}

func (m *MockTrackingStore) Complete(_ context.Context, record *tracking.Record) error {
	m.CompleteCalls = append(m.CompleteCalls, record)
	return m.CompleteError
}

func (m *MockTrackingStore) Fail(_ context.Context, record *tracking.Record, failedStep, errorMessage string) error {
	m.FailCalls = append(m.FailCalls, MockFailCall{Record: record, FailedStep: failedStep, ErrorMessage: errorMessage})
	return m.FailError
}

func (m *MockTrackingStore) Latest(_ context.Context, environment string, limit int32) ([]tracking.EnvironmentIndex, error) {
	m.LatestCalls = append(m.LatestCalls, MockLatestCall{Environment: environment, Limit: limit})
	return m.LatestResult, m.LatestError
}
