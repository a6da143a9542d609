package ecs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/smithy-go"
)

// API is the subset of the ECS service client that the deployment entities call. The real
// *ecs.Client satisfies it; tests substitute fakes.
type API interface {
	ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error)
	DeregisterTaskDefinition(ctx context.Context, params *ecs.DeregisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error)
	RegisterTaskDefinition(ctx context.Context, params *ecs.RegisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error)
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
	ListServices(ctx context.Context, params *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

// ServiceCallError is a failed ECS API call. Code and Message are taken from the service's
// error response when there is one.
type ServiceCallError struct {
	Operation string
	Code      string
	Message   string
	Cause     error
}

func (e *ServiceCallError) Error() string {
	if len(e.Code) > 0 {
		return fmt.Sprintf("ECS %s call failed: %s: %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("ECS %s call failed: %s", e.Operation, e.Message)
}

func (e *ServiceCallError) Unwrap() error {
	return e.Cause
}

func serviceCallError(operation string, err error) *ServiceCallError {
	callError := &ServiceCallError{Operation: operation, Message: err.Error(), Cause: err}
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		callError.Code = apiError.ErrorCode()
		callError.Message = apiError.ErrorMessage()
	}
	return callError
}

// MissingImageMapping means a container definition's image key has no entry in the image
// map produced by the deployment's image steps. It is a configuration error.
type MissingImageMapping struct {
	Key string
}

func (e *MissingImageMapping) Error() string {
	return fmt.Sprintf("no pushed image found for container image key [%s]", e.Key)
}
