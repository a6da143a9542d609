package test

import (
	"context"

	"github.com/pennsieve/ecs-deployer/shared/command"
)

type commandResult struct {
	output string
	err    error
}

// MockCommandRunner is a command.Runner that records every invocation instead of executing
// anything. Canned results are keyed by a command's Display string and consumed in order, so
// a command with no remaining results returns empty output and no error.
type MockCommandRunner struct {
	Invocations []command.Command
	results     map[string][]commandResult
}

func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{results: map[string][]commandResult{}}
}

func (m *MockCommandRunner) WithResult(display, output string, err error) *MockCommandRunner {
	m.results[display] = append(m.results[display], commandResult{output: output, err: err})
	return m
}

func (m *MockCommandRunner) Run(_ context.Context, cmd command.Command) (string, error) {
	m.Invocations = append(m.Invocations, cmd)
	display := cmd.Display()
	queue := m.results[display]
	if len(queue) == 0 {
		return "", nil
	}
	result := queue[0]
	m.results[display] = queue[1:]
	return result.output, result.err
}

// Displays returns the Display strings of all recorded invocations in execution order.
func (m *MockCommandRunner) Displays() []string {
	var displays []string
	for _, cmd := range m.Invocations {
		displays = append(displays, cmd.Display())
	}
	return displays
}
