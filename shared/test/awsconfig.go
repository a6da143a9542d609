package test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	awslogging "github.com/aws/smithy-go/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AWSEndpoints builds an aws.Config whose service endpoints point at test servers. Calls to
// services without a registered endpoint fail the test instead of reaching AWS.
type AWSEndpoints struct {
	testingT            require.TestingT
	serviceIDToEndpoint map[string]aws.Endpoint
}

func NewAWSEndpoints(t require.TestingT) *AWSEndpoints {
	return &AWSEndpoints{
		testingT:            t,
		serviceIDToEndpoint: map[string]aws.Endpoint{},
	}
}

func (e *AWSEndpoints) WithECS(ecsURL string) *AWSEndpoints {
	e.serviceIDToEndpoint[ecs.ServiceID] = aws.Endpoint{URL: ecsURL}
	return e
}

func (e *AWSEndpoints) WithECR(ecrURL string) *AWSEndpoints {
	e.serviceIDToEndpoint[ecr.ServiceID] = aws.Endpoint{URL: ecrURL}
	return e
}

func (e *AWSEndpoints) WithDynamoDB(dynamodbURL string) *AWSEndpoints {
	e.serviceIDToEndpoint[dynamodb.ServiceID] = aws.Endpoint{URL: dynamodbURL}
	return e
}

func (e *AWSEndpoints) WithSES(sesURL string) *AWSEndpoints {
	e.serviceIDToEndpoint[ses.ServiceID] = aws.Endpoint{URL: sesURL}
	return e
}

func (e *AWSEndpoints) WithS3(s3URL string) *AWSEndpoints {
	e.serviceIDToEndpoint[s3.ServiceID] = aws.Endpoint{URL: s3URL, HostnameImmutable: true}
	return e
}

func (e *AWSEndpoints) Config(ctx context.Context, logRequests bool) aws.Config {
	awsKey := os.Getenv("TEST_AWS_KEY")
	if len(awsKey) == 0 {
		awsKey = "test-aws-key"
	}
	awsSecret := os.Getenv("TEST_AWS_SECRET")
	if len(awsSecret) == 0 {
		awsSecret = "test-aws-secret"
	}
	optFns := []func(options *config.LoadOptions) error{
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(awsKey, awsSecret, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if endpoint, ok := e.serviceIDToEndpoint[service]; ok {
				return endpoint, nil
			}
			return aws.Endpoint{}, fmt.Errorf("no test endpoint has been set for AWS serviceID: %s", service)
		})),
	}
	if logRequests {
		awsLogger := awslogging.NewStandardLogger(log.Writer())
		optFns = append(optFns, config.WithLogger(awsLogger), config.WithClientLogMode(aws.LogRequestWithBody))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		assert.FailNow(e.testingT, "error creating AWS config", err)
	}
	return awsConfig
}
