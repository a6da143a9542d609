package notification

import (
	"context"

	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

type Emailer interface {
	SendDeploymentComplete(ctx context.Context, record *tracking.Record) error
	SendDeploymentFailed(ctx context.Context, record *tracking.Record, deployError error) error
}
