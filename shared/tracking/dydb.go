package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const TableNameKey = "DEPLOYMENT_TRACKING_DYNAMODB_TABLE_NAME"
const EnvironmentIndexName = "EnvironmentIndex"

type DyDBStore struct {
	client *dynamodb.Client
	table  string
	logger *slog.Logger
}

func NewStore(client *dynamodb.Client, logger *slog.Logger, tableName string) Store {
	return &DyDBStore{
		client: client,
		table:  tableName,
		logger: logger,
	}
}

// SaveInProgress acquires the environment's deployment lock and writes the record. A held
// lock fails the whole call with DeploymentInProgressError and the record is not written.
func (s *DyDBStore) SaveInProgress(ctx context.Context, record *Record) error {
	if err := s.acquireLock(ctx, record); err != nil {
		return err
	}
	return s.putRecord(ctx, record)
}

func (s *DyDBStore) acquireLock(ctx context.Context, record *Record) error {
	item, err := toItem(newLockItem(record))
	if err != nil {
		return err
	}
	putCondition := fmt.Sprintf("attribute_not_exists(%s)", IDAttrName)
	in := dynamodb.PutItemInput{
		Item:                                item,
		TableName:                           aws.String(s.table),
		ConditionExpression:                 aws.String(putCondition),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}
	if _, err = s.client.PutItem(ctx, &in); err == nil {
		return nil
	}
	var conditionFailedError *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailedError) {
		inProgressError := &DeploymentInProgressError{Environment: record.Environment}
		if existingLock, err := fromItem[lockItem](conditionFailedError.Item); err == nil {
			inProgressError.DeploymentID = existingLock.DeploymentID
		} else {
			inProgressError.UnmarshallingError = err
		}
		return inProgressError
	}
	return fmt.Errorf("error acquiring deployment lock for environment %s: %w", record.Environment, err)
}

func (s *DyDBStore) putRecord(ctx context.Context, record *Record) error {
	item, err := record.Item()
	if err != nil {
		return err
	}
	in := dynamodb.PutItemInput{
		Item:         item,
		TableName:    aws.String(s.table),
		ReturnValues: types.ReturnValueAllOld,
	}
	out, err := s.client.PutItem(ctx, &in)
	if err != nil {
		return fmt.Errorf("error putting record %+v to %s: %w", record, s.table, err)
	}
	if len(out.Attributes) > 0 {
		s.logger.Warn("overwrote existing tracking record", slog.Any("existingRecord", out.Attributes))
	}
	return nil
}

func (s *DyDBStore) Complete(ctx context.Context, record *Record) error {
	return s.finish(ctx, record, Completed, "", "")
}

func (s *DyDBStore) Fail(ctx context.Context, record *Record, failedStep, errorMessage string) error {
	return s.finish(ctx, record, Failed, failedStep, errorMessage)
}

// finish updates the record's status and finished at date, mirrors the update onto the
// given record, and releases the environment's deployment lock. The lock stays held if the
// record update fails.
func (s *DyDBStore) finish(ctx context.Context, record *Record, status DeploymentStatus, failedStep, errorMessage string) error {
	finishedAt := time.Now().UTC()
	expressionAttrNames := map[string]string{
		"#status":     StatusAttrName,
		"#finishedAt": FinishedAtAttrName,
	}
	temp := &Record{
		EnvironmentIndex: EnvironmentIndex{Status: status, FinishedAt: &finishedAt},
		FailedStep:       failedStep,
		ErrorMessage:     errorMessage,
	}
	expressionValues, err := temp.Item()
	if err != nil {
		return fmt.Errorf("error marshalling status %s and finishedAt %s: %w", status, finishedAt, err)
	}
	expressionAttrValues := map[string]types.AttributeValue{
		":status":     expressionValues[StatusAttrName],
		":finishedAt": expressionValues[FinishedAtAttrName],
	}
	updateExpression := "SET #status = :status, #finishedAt = :finishedAt"
	if len(failedStep) > 0 {
		expressionAttrNames["#failedStep"] = FailedStepAttrName
		expressionAttrValues[":failedStep"] = expressionValues[FailedStepAttrName]
		updateExpression += ", #failedStep = :failedStep"
	}
	if len(errorMessage) > 0 {
		expressionAttrNames["#errorMessage"] = ErrorMessageAttrName
		expressionAttrValues[":errorMessage"] = expressionValues[ErrorMessageAttrName]
		updateExpression += ", #errorMessage = :errorMessage"
	}

	updateIn := &dynamodb.UpdateItemInput{
		Key:                       itemKeyFromID(record.ID),
		TableName:                 aws.String(s.table),
		ExpressionAttributeNames:  expressionAttrNames,
		ExpressionAttributeValues: expressionAttrValues,
		UpdateExpression:          aws.String(updateExpression),
	}
	if _, err := s.client.UpdateItem(ctx, updateIn); err != nil {
		return fmt.Errorf("error updating record %s with status: %s: %w", record.ID, status, err)
	}
	record.Status = status
	record.FinishedAt = &finishedAt
	record.FailedStep = failedStep
	record.ErrorMessage = errorMessage
	return s.releaseLock(ctx, record)
}

// releaseLock deletes the environment's lock item if this record's deployment still holds
// it. A lock held by some other deployment is logged and left in place.
func (s *DyDBStore) releaseLock(ctx context.Context, record *Record) error {
	deleteCondition := fmt.Sprintf("%s = :deploymentId", LockDeploymentIDAttrName)
	deleteIn := &dynamodb.DeleteItemInput{
		Key:                 itemKeyFromID(lockID(record.Environment)),
		TableName:           aws.String(s.table),
		ConditionExpression: aws.String(deleteCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deploymentId": stringAttributeValue(record.ID),
		},
	}
	if _, err := s.client.DeleteItem(ctx, deleteIn); err != nil {
		var conditionFailedError *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailedError) {
			s.logger.Warn("deployment lock was not held at release",
				slog.String("environment", record.Environment),
				slog.String("deploymentId", record.ID))
			return nil
		}
		return fmt.Errorf("error releasing deployment lock for environment %s: %w", record.Environment, err)
	}
	return nil
}

// Latest returns up to limit of the environment's most recently started deployments, newest
// first.
func (s *DyDBStore) Latest(ctx context.Context, environment string, limit int32) ([]EnvironmentIndex, error) {
	keyCondition := expression.Key(EnvironmentAttrName).Equal(expression.Value(environment))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("error building query expression for environment %s: %w", environment, err)
	}
	queryIn := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(EnvironmentIndexName),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		KeyConditionExpression:    expr.KeyCondition(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	}
	var indexEntries []EnvironmentIndex
	var errs []error
	var lastEvaluatedKey map[string]types.AttributeValue
	for runQuery := true; runQuery && len(indexEntries) < int(limit); runQuery = len(lastEvaluatedKey) != 0 {
		queryIn.ExclusiveStartKey = lastEvaluatedKey
		queryOut, err := s.client.Query(ctx, queryIn)
		if err != nil {
			return nil, fmt.Errorf("error querying EnvironmentIndex: %w", err)
		}
		lastEvaluatedKey = queryOut.LastEvaluatedKey
		for _, item := range queryOut.Items {
			if indexEntry, err := EnvironmentIndexFromItem(item); err == nil {
				indexEntries = append(indexEntries, *indexEntry)
			} else {
				errs = append(errs, err)
			}
		}
	}
	return indexEntries, errors.Join(errs...)
}

// DeploymentInProgressError means the environment's deployment lock is already held, so a
// second concurrent deployment was refused.
type DeploymentInProgressError struct {
	Environment        string
	DeploymentID       string
	UnmarshallingError error
}

func (e *DeploymentInProgressError) Error() string {
	if e.UnmarshallingError != nil {
		return fmt.Sprintf("a deployment of environment %s is already in progress; there was an error when unmarshalling the existing lock: %v",
			e.Environment, e.UnmarshallingError)
	}
	if len(e.DeploymentID) > 0 {
		return fmt.Sprintf("deployment %s of environment %s is already in progress", e.DeploymentID, e.Environment)
	}
	return fmt.Sprintf("a deployment of environment %s is already in progress", e.Environment)
}
