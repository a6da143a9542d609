package deployment_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/pennsieve/ecs-deployer/shared/deployment"
	"github.com/pennsieve/ecs-deployer/shared/logging"
	"github.com/pennsieve/ecs-deployer/shared/pipeline"
	"github.com/pennsieve/ecs-deployer/shared/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specYAML = `
environment: production
registryLogin: true

images:
  - name: web
    build: true
    dockerfile: docker/web/Dockerfile
    tagCommand: git rev-parse --short HEAD
    repository: 123456789012.dkr.ecr.us-east-1.amazonaws.com/web
  - name: nginx
    tagCommand: git rev-parse --short HEAD
    repository: 123456789012.dkr.ecr.us-east-1.amazonaws.com/nginx

taskDefinitions:
  - name: web-definition
    family: prod-web
    taskRoleARN: arn:aws:iam::123456789012:role/prod-web
    networkMode: awsvpc
    deregisterPreviousDefinitions: false
    containerDefinitions:
      - name: web
        image: web
        memory: 128
        portMappings:
          - containerPort: 8080
            hostPort: 80

tasks:
  - name: migrate
    config:
      cluster: production
      taskDefinition: prod-web
      count: 1

services:
  - name: billing
    cluster: production
    exactMatch: true
    config:
      desiredCount: 3
      taskDefinition: prod-web
`

const specJSON = `{
  "environment": "production",
  "registryLogin": true,
  "images": [
    {
      "name": "web",
      "build": true,
      "dockerfile": "docker/web/Dockerfile",
      "tagCommand": "git rev-parse --short HEAD",
      "repository": "123456789012.dkr.ecr.us-east-1.amazonaws.com/web"
    },
    {
      "name": "nginx",
      "tagCommand": "git rev-parse --short HEAD",
      "repository": "123456789012.dkr.ecr.us-east-1.amazonaws.com/nginx"
    }
  ],
  "taskDefinitions": [
    {
      "name": "web-definition",
      "family": "prod-web",
      "taskRoleARN": "arn:aws:iam::123456789012:role/prod-web",
      "networkMode": "awsvpc",
      "deregisterPreviousDefinitions": false,
      "containerDefinitions": [
        {
          "name": "web",
          "image": "web",
          "memory": 128,
          "portMappings": [{"containerPort": 8080, "hostPort": 80}]
        }
      ]
    }
  ],
  "tasks": [
    {
      "name": "migrate",
      "config": {"cluster": "production", "taskDefinition": "prod-web", "count": 1}
    }
  ],
  "services": [
    {
      "name": "billing",
      "cluster": "production",
      "exactMatch": true,
      "config": {"desiredCount": 3, "taskDefinition": "prod-web"}
    }
  ]
}`

func TestFromYAML(t *testing.T) {
	spec, err := deployment.FromYAML([]byte(specYAML))
	require.NoError(t, err)

	assert.Equal(t, "production", spec.Environment)
	assert.True(t, spec.RegistryLogin)

	require.Len(t, spec.Images, 2)
	web := spec.Images[0]
	assert.Equal(t, "web", web.Name)
	assert.True(t, web.Build)
	assert.Equal(t, "docker/web/Dockerfile", web.Dockerfile)
	assert.Equal(t, "git rev-parse --short HEAD", web.TagCommand)
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/web", web.Repository)
	assert.False(t, spec.Images[1].Build)

	require.Len(t, spec.TaskDefinitions, 1)
	webDefinition := spec.TaskDefinitions[0]
	assert.Equal(t, "web-definition", webDefinition.Name)
	assert.Equal(t, "prod-web", webDefinition.Family)
	assert.Equal(t, "arn:aws:iam::123456789012:role/prod-web", webDefinition.TaskRoleARN)
	assert.Equal(t, "awsvpc", webDefinition.NetworkMode)
	assert.Equal(t, aws.Bool(false), webDefinition.DeregisterPreviousDefinitions)
	require.Len(t, webDefinition.ContainerDefinitions, 1)
	assert.Equal(t, "web", webDefinition.ContainerDefinitions[0]["image"])
	assert.Equal(t, 128, webDefinition.ContainerDefinitions[0]["memory"])

	require.Len(t, spec.Tasks, 1)
	assert.Equal(t, "migrate", spec.Tasks[0].Name)
	assert.Equal(t, "production", spec.Tasks[0].Config["cluster"])
	assert.Equal(t, 1, spec.Tasks[0].Config["count"])

	require.Len(t, spec.Services, 1)
	assert.Equal(t, "billing", spec.Services[0].Name)
	assert.Equal(t, "production", spec.Services[0].Cluster)
	assert.True(t, spec.Services[0].ExactMatch)
	assert.Equal(t, 3, spec.Services[0].Config["desiredCount"])
}

func TestFromYAML_JSONDocument(t *testing.T) {
	fromYAML, err := deployment.FromYAML([]byte(specYAML))
	require.NoError(t, err)
	fromJSON, err := deployment.FromYAML([]byte(specJSON))
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromJSON)
}

func TestFromYAML_Defaults(t *testing.T) {
	spec, err := deployment.FromYAML([]byte(`
environment: staging
taskDefinitions:
  - name: worker-definition
    family: staging-worker
    containerDefinitions:
      - name: worker
        image: worker
`))
	require.NoError(t, err)
	assert.False(t, spec.RegistryLogin)
	require.Len(t, spec.TaskDefinitions, 1)
	assert.Empty(t, spec.TaskDefinitions[0].NetworkMode)
	assert.Nil(t, spec.TaskDefinitions[0].DeregisterPreviousDefinitions)
}

func TestFromYAML_TaskRoleARNKey(t *testing.T) {
	// yaml.v3 matches tags case-sensitively, so the exact documented key spelling
	// must reach the task role field
	spec, err := deployment.FromYAML([]byte(`
environment: staging
taskDefinitions:
  - name: worker-definition
    family: staging-worker
    taskRoleARN: arn:aws:iam::123456789012:role/staging-worker
    containerDefinitions:
      - name: worker
        image: worker
`))
	require.NoError(t, err)
	require.Len(t, spec.TaskDefinitions, 1)
	assert.Equal(t, "arn:aws:iam::123456789012:role/staging-worker", spec.TaskDefinitions[0].TaskRoleARN)
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := deployment.FromYAML([]byte(`
registryLogin: true
images:
  - name: web
    build: true
  - name: web
    tagCommand: git rev-parse --short HEAD
    repository: 123456789012.dkr.ecr.us-east-1.amazonaws.com/web
taskDefinitions:
  - name: web-definition
services:
  - name: billing
    config:
      desiredCount: 3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing an environment")
	assert.Contains(t, err.Error(), `image "web" is missing a repository`)
	assert.Contains(t, err.Error(), `image "web" sets build but is missing a dockerfile`)
	assert.Contains(t, err.Error(), `image name "web" appears more than once`)
	assert.Contains(t, err.Error(), `task definition "web-definition" is missing a family`)
	assert.Contains(t, err.Error(), `task definition "web-definition" has no container definitions`)
	assert.Contains(t, err.Error(), `service "billing" is missing a cluster`)
}

func TestSpec_Steps(t *testing.T) {
	spec, err := deployment.FromYAML([]byte(specYAML))
	require.NoError(t, err)

	steps, err := spec.Steps(test.NewMockCommandRunner(), test.NewMockECSAPI(), logging.Default)
	require.NoError(t, err)

	var names []string
	var kinds []pipeline.Kind
	for _, step := range steps {
		names = append(names, step.Name())
		kinds = append(kinds, step.Kind())
	}
	assert.Equal(t, []string{"web", "nginx", "web-definition", "migrate", "billing"}, names)
	assert.Equal(t, []pipeline.Kind{
		pipeline.KindImage,
		pipeline.KindImage,
		pipeline.KindTaskDefinition,
		pipeline.KindTask,
		pipeline.KindService,
	}, kinds)
}
