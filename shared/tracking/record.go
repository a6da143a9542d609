package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DeploymentStatus is the current state of one deployment run.
type DeploymentStatus string

const (
	InProgress DeploymentStatus = "IN_PROGRESS"
	Completed  DeploymentStatus = "COMPLETED"
	Failed     DeploymentStatus = "FAILED"
)

func DeploymentStatusFromString(s string) (DeploymentStatus, error) {
	switch strings.ToUpper(s) {
	case string(InProgress):
		return InProgress, nil
	case string(Completed):
		return Completed, nil
	case string(Failed):
		return Failed, nil
	default:
		return "", fmt.Errorf("unknown deployment status: [%s]", s)
	}
}

// IDAttrName and the other attribute name constants below should match the values in the
// dynamodbav struct tags in the Record, EnvironmentIndex, and lockItem structs.
const IDAttrName = "id"
const EnvironmentAttrName = "environment"
const StatusAttrName = "status"
const StartedAtAttrName = "startedAt"
const FinishedAtAttrName = "finishedAt"
const SpecSourceAttrName = "specSource"
const StepsTotalAttrName = "stepsTotal"
const FailedStepAttrName = "failedStep"
const ErrorMessageAttrName = "errorMessage"
const LockDeploymentIDAttrName = "deploymentId"
const LockedAtAttrName = "lockedAt"

// EnvironmentIndex represents a Global Secondary Index to the Record table. The partition
// key of this index is Environment and the sort key is StartedAt so that the most recent
// deployments of an environment can be read without scanning the whole table. Lock items
// share the table but carry no startedAt attribute, which keeps them out of this index.
type EnvironmentIndex struct {
	ID          string           `dynamodbav:"id"`
	Environment string           `dynamodbav:"environment"`
	Status      DeploymentStatus `dynamodbav:"status"`
	StartedAt   time.Time        `dynamodbav:"startedAt"`
	// FinishedAt is a pointer because omitempty does not work with time.Time:
	// https://github.com/aws/aws-sdk-go/issues/2040 (issue is for the V1 SDK, but the V2 SDK behaves the same way)
	// This is the cleanest way to ensure that records of deployments that haven't finished result in table items
	// with no finished at field attribute instead of having the attribute set to the time.Time zero value 0001-01-01T00:00:00Z
	FinishedAt *time.Time `dynamodbav:"finishedAt,omitempty"`
}

// Record is one deployment run as stored in the tracking table.
type Record struct {
	EnvironmentIndex
	SpecSource   string `dynamodbav:"specSource"`
	StepsTotal   int    `dynamodbav:"stepsTotal"`
	FailedStep   string `dynamodbav:"failedStep,omitempty"`
	ErrorMessage string `dynamodbav:"errorMessage,omitempty"`
}

func NewRecord(id, environment, specSource string, stepsTotal int) *Record {
	return &Record{
		EnvironmentIndex: EnvironmentIndex{
			ID:          id,
			Environment: environment,
			Status:      InProgress,
			StartedAt:   time.Now().UTC(),
		},
		SpecSource: specSource,
		StepsTotal: stepsTotal,
	}
}

func (r *Record) Item() (map[string]types.AttributeValue, error) {
	return toItem(r)
}

var FromItem = fromItem[Record]

var EnvironmentIndexFromItem = fromItem[EnvironmentIndex]

// lockItem is the per-environment deployment lock. There is at most one per environment,
// held for the duration of a deployment run.
type lockItem struct {
	ID           string    `dynamodbav:"id"`
	DeploymentID string    `dynamodbav:"deploymentId"`
	LockedAt     time.Time `dynamodbav:"lockedAt"`
}

const lockIDPrefix = "LOCK#"

func lockID(environment string) string {
	return lockIDPrefix + environment
}

func newLockItem(record *Record) *lockItem {
	return &lockItem{
		ID:           lockID(record.Environment),
		DeploymentID: record.ID,
		LockedAt:     time.Now().UTC(),
	}
}

func itemKeyFromID(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{IDAttrName: stringAttributeValue(id)}
}
