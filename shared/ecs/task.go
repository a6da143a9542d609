package ecs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// TaskSpec describes one one-off task run. Config is passed through verbatim as the RunTask
// request, using the ECS API's own key names.
type TaskSpec struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

type Task struct {
	name   string
	config map[string]any
	client API
	logger *slog.Logger
}

func NewTask(spec TaskSpec, client API, logger *slog.Logger) *Task {
	return &Task{
		name:   spec.Name,
		config: spec.Config,
		client: client,
		logger: logger.With(slog.String("task", spec.Name)),
	}
}

func (t *Task) Name() string {
	return t.name
}

// RunTask starts the task and returns the started task's ARN. A response that carries
// failure entries is an error even when the call itself succeeded.
func (t *Task) RunTask(ctx context.Context) (string, error) {
	in := &ecs.RunTaskInput{}
	if err := decodeConfig(t.config, in); err != nil {
		return "", fmt.Errorf("error decoding config of task %s: %w", t.name, err)
	}
	out, err := t.client.RunTask(ctx, in)
	if err != nil {
		return "", serviceCallError("RunTask", err)
	}
	var taskARN string
	if len(out.Tasks) > 0 {
		taskARN = aws.ToString(out.Tasks[0].TaskArn)
		t.logger.Info("task started", taskLogGroup(out.Tasks[0]))
		for i := 1; i < len(out.Tasks); i++ {
			t.logger.Warn("unexpected additional tasks started", taskLogGroup(out.Tasks[i]))
		}
	}
	if len(out.Failures) == 0 {
		if len(taskARN) > 0 {
			return taskARN, nil
		}
		return "", fmt.Errorf("unexpected response: RunTask returned no tasks and no failures")
	}
	var failMsgs []string
	for _, fail := range out.Failures {
		failMsgs = append(failMsgs, fmt.Sprintf("[arn: %s, reason: %s, detail: %s]",
			aws.ToString(fail.Arn),
			aws.ToString(fail.Reason),
			aws.ToString(fail.Detail)))
	}
	if len(taskARN) == 0 {
		return "", fmt.Errorf("task failures: %s", strings.Join(failMsgs, ", "))
	}
	return taskARN, fmt.Errorf("task %s started, but there were failures: %s", taskARN, strings.Join(failMsgs, ", "))
}

// Handle runs the task. The returned ARN is only used for logging; nothing downstream
// consumes it.
func (t *Task) Handle(ctx context.Context) (string, error) {
	return t.RunTask(ctx)
}

// taskLogGroup returns a view of a types.Task as a slog.Group for structured logging
func taskLogGroup(task types.Task) slog.Attr {
	return slog.Group("task",
		slog.String("arn", aws.ToString(task.TaskArn)),
		slog.String("lastStatus", aws.ToString(task.LastStatus)),
	)
}
