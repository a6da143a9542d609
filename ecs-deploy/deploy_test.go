package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/pennsieve/ecs-deployer/ecs-deploy/config"
	"github.com/pennsieve/ecs-deployer/shared/pipeline"
	"github.com/pennsieve/ecs-deployer/shared/test"
	"github.com/pennsieve/ecs-deployer/shared/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deploySpec = `
environment: production
images:
  - name: web
    dockerfile: Dockerfile
    tagCommand: git rev-parse --short HEAD
    repository: 123456789012.dkr.ecr.us-east-1.amazonaws.com/web
    build: true
taskDefinitions:
  - name: web-definition
    family: prod-web
    containerDefinitions:
      - name: web
        image: web
        memory: 128
services:
  - name: web
    cluster: production
    config:
      desiredCount: 2
`

const webServiceARN = "arn:aws:ecs:us-east-1:123456789012:service/web"
const apiServiceARN = "arn:aws:ecs:us-east-1:123456789012:service/api"

func testDeployEnv() *config.Env {
	return &config.Env{
		TrackingTable:          "deployment-tracking",
		NotificationSender:     "deploys@example.com",
		NotificationRecipients: []string{"team@example.com"},
	}
}

func writeDeploySpec(t *testing.T, specDocument string) string {
	t.Helper()
	specPath := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(specDocument), 0600))
	return specPath
}

type deployFixture struct {
	config  *config.Config
	runner  *test.MockCommandRunner
	ecs     *test.MockECSAPI
	store   *test.MockTrackingStore
	emailer *test.MockEmailer
}

func newDeployFixture(t *testing.T, awsConfig aws.Config) *deployFixture {
	t.Helper()
	test.SetLogLevel(t, slog.LevelWarn)
	fixture := &deployFixture{
		config:  config.NewConfig(awsConfig, testDeployEnv()),
		runner:  test.NewMockCommandRunner(),
		ecs:     test.NewMockECSAPI(),
		store:   test.NewMockTrackingStore(),
		emailer: test.NewMockEmailer(),
	}
	fixture.config.SetCommandRunner(fixture.runner)
	fixture.config.SetECSClient(fixture.ecs)
	fixture.config.SetTrackingStore(fixture.store)
	fixture.config.SetEmailer(fixture.emailer)
	return fixture
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))
	fixture.runner.WithResult("git rev-parse --short HEAD", "abc1234\n", nil)

	var registerInput *awsecs.RegisterTaskDefinitionInput
	fixture.ecs.RegisterTaskDefinitionFunc = func(params *awsecs.RegisterTaskDefinitionInput) (*awsecs.RegisterTaskDefinitionOutput, error) {
		registerInput = params
		return &awsecs.RegisterTaskDefinitionOutput{TaskDefinition: &types.TaskDefinition{
			Family:   params.Family,
			Revision: 12,
		}}, nil
	}
	fixture.ecs.ListServicesFunc = func(params *awsecs.ListServicesInput) (*awsecs.ListServicesOutput, error) {
		return &awsecs.ListServicesOutput{ServiceArns: []string{apiServiceARN, webServiceARN}}, nil
	}
	var updateInput *awsecs.UpdateServiceInput
	fixture.ecs.UpdateServiceFunc = func(params *awsecs.UpdateServiceInput) (*awsecs.UpdateServiceOutput, error) {
		updateInput = params
		return &awsecs.UpdateServiceOutput{}, nil
	}

	require.NoError(t, Deploy(ctx, fixture.config, specPath, "", false))

	pushedImage := "123456789012.dkr.ecr.us-east-1.amazonaws.com/web:abc1234"
	assert.Equal(t, []string{
		"git rev-parse --short HEAD",
		"docker build -t web:abc1234 -f Dockerfile .",
		"docker tag web:abc1234 " + pushedImage,
		"docker push " + pushedImage,
	}, fixture.runner.Displays())

	assert.Equal(t, []string{
		"ListTaskDefinitions",
		"RegisterTaskDefinition",
		"ListServices",
		"UpdateService",
	}, fixture.ecs.Calls)

	require.NotNil(t, registerInput)
	require.Len(t, registerInput.ContainerDefinitions, 1)
	assert.Equal(t, pushedImage, aws.ToString(registerInput.ContainerDefinitions[0].Image))

	require.NotNil(t, updateInput)
	assert.Equal(t, "production", aws.ToString(updateInput.Cluster))
	assert.Equal(t, webServiceARN, aws.ToString(updateInput.Service))
	assert.Equal(t, aws.Int32(2), updateInput.DesiredCount)

	require.Len(t, fixture.store.SaveInProgressCalls, 1)
	record := fixture.store.SaveInProgressCalls[0]
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "production", record.Environment)
	assert.Equal(t, specPath, record.SpecSource)
	assert.Equal(t, 3, record.StepsTotal)
	assert.Equal(t, tracking.InProgress, record.Status)

	require.Len(t, fixture.store.CompleteCalls, 1)
	assert.Same(t, record, fixture.store.CompleteCalls[0])
	assert.Empty(t, fixture.store.FailCalls)

	require.Len(t, fixture.emailer.CompleteCalls, 1)
	assert.Same(t, record, fixture.emailer.CompleteCalls[0])
	assert.Empty(t, fixture.emailer.FailedCalls)
}

func TestDeploy_ShortCircuit(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))
	fixture.runner.WithResult("git rev-parse --short HEAD", "abc1234\n", nil)

	fixture.ecs.RegisterTaskDefinitionFunc = func(params *awsecs.RegisterTaskDefinitionInput) (*awsecs.RegisterTaskDefinitionOutput, error) {
		return nil, errors.New("rate exceeded")
	}

	err := Deploy(ctx, fixture.config, specPath, "", false)
	require.Error(t, err)

	var stepError *pipeline.StepError
	require.ErrorAs(t, err, &stepError)
	assert.Equal(t, "web-definition", stepError.StepName)
	assert.Equal(t, pipeline.KindTaskDefinition, stepError.StepKind)

	// the image step ran, the failing task definition step stopped the run, and the
	// service step was never attempted
	assert.Len(t, fixture.runner.Displays(), 4)
	assert.Equal(t, []string{"ListTaskDefinitions", "RegisterTaskDefinition"}, fixture.ecs.Calls)

	require.Len(t, fixture.store.FailCalls, 1)
	assert.Equal(t, "web-definition", fixture.store.FailCalls[0].FailedStep)
	assert.Contains(t, fixture.store.FailCalls[0].ErrorMessage, "rate exceeded")
	assert.Empty(t, fixture.store.CompleteCalls)

	require.Len(t, fixture.emailer.FailedCalls, 1)
	assert.ErrorIs(t, fixture.emailer.FailedCalls[0].DeployError, stepError)
	assert.Empty(t, fixture.emailer.CompleteCalls)
}

func TestDeploy_EnvironmentAlreadyLocked(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))
	fixture.store.SaveInProgressError = &tracking.DeploymentInProgressError{
		Environment:  "production",
		DeploymentID: "5b57a6d6-14a5-4f46-8b0c-9f5ba8e68e93",
	}

	err := Deploy(ctx, fixture.config, specPath, "", false)
	require.Error(t, err)

	var inProgress *tracking.DeploymentInProgressError
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, "production", inProgress.Environment)

	// no step ran and nothing was finalized; the lock belongs to the other deployment
	assert.Empty(t, fixture.runner.Invocations)
	assert.Empty(t, fixture.ecs.Calls)
	assert.Empty(t, fixture.store.CompleteCalls)
	assert.Empty(t, fixture.store.FailCalls)
	assert.Empty(t, fixture.emailer.CompleteCalls)
	assert.Empty(t, fixture.emailer.FailedCalls)
}

func TestDeploy_DryRun(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))

	require.NoError(t, Deploy(ctx, fixture.config, specPath, "", true))

	assert.Empty(t, fixture.runner.Invocations)
	assert.Empty(t, fixture.ecs.Calls)
	assert.Empty(t, fixture.store.SaveInProgressCalls)
	assert.Empty(t, fixture.store.CompleteCalls)
	assert.Empty(t, fixture.emailer.CompleteCalls)
}

func TestDeploy_EnvironmentOverride(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))
	fixture.runner.WithResult("git rev-parse --short HEAD", "abc1234\n", nil)

	require.NoError(t, Deploy(ctx, fixture.config, specPath, "staging", false))

	require.Len(t, fixture.store.SaveInProgressCalls, 1)
	assert.Equal(t, "staging", fixture.store.SaveInProgressCalls[0].Environment)
}

func TestDeploy_TrackingNotConfigured(t *testing.T) {
	ctx := context.Background()
	specPath := writeDeploySpec(t, deploySpec)
	fixture := newDeployFixture(t, test.NewAWSEndpoints(t).Config(ctx, false))
	fixture.config.Env = &config.Env{}
	fixture.runner.WithResult("git rev-parse --short HEAD", "abc1234\n", nil)

	require.NoError(t, Deploy(ctx, fixture.config, specPath, "", false))

	// the deployment runs untracked and unnotified
	assert.Len(t, fixture.runner.Displays(), 4)
	assert.Empty(t, fixture.store.SaveInProgressCalls)
	assert.Empty(t, fixture.store.CompleteCalls)
	assert.Empty(t, fixture.emailer.CompleteCalls)
}

func TestDeploy_RegistryLogin(t *testing.T) {
	ctx := context.Background()
	registryLoginSpec := `
environment: production
registryLogin: true
services:
  - name: web
    cluster: production
    config:
      forceNewDeployment: true
`
	specPath := writeDeploySpec(t, registryLoginSpec)

	proxyEndpoint := "https://123456789012.dkr.ecr.us-east-1.amazonaws.com"
	token := base64.StdEncoding.EncodeToString([]byte("AWS:sekret"))
	mockECR := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		respMap := map[string][]map[string]string{
			"authorizationData": {{
				"authorizationToken": token,
				"proxyEndpoint":      proxyEndpoint,
			}},
		}
		respBytes, err := json.Marshal(respMap)
		require.NoError(t, err)
		_, err = fmt.Fprintln(writer, string(respBytes))
		require.NoError(t, err)
	}))
	defer mockECR.Close()

	awsConfig := test.NewAWSEndpoints(t).WithECR(mockECR.URL).Config(ctx, false)
	fixture := newDeployFixture(t, awsConfig)
	fixture.ecs.ListServicesFunc = func(params *awsecs.ListServicesInput) (*awsecs.ListServicesOutput, error) {
		return &awsecs.ListServicesOutput{ServiceArns: []string{webServiceARN}}, nil
	}

	require.NoError(t, Deploy(ctx, fixture.config, specPath, "", false))

	require.NotEmpty(t, fixture.runner.Invocations)
	login := fixture.runner.Invocations[0]
	assert.Equal(t, "docker login -u AWS --password-stdin "+proxyEndpoint, login.Display())
	assert.Equal(t, "sekret", login.Stdin())
	assert.Equal(t, []string{"ListServices", "UpdateService"}, fixture.ecs.Calls)
}
