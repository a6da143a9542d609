package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/pennsieve/ecs-deployer/shared/awsclient"
	"github.com/pennsieve/ecs-deployer/shared/command"
	"github.com/pennsieve/ecs-deployer/shared/docker"
	"github.com/pennsieve/ecs-deployer/shared/ecs"
	"github.com/pennsieve/ecs-deployer/shared/logging"
	"github.com/pennsieve/ecs-deployer/shared/notification"
	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

// Config collects the deployer's collaborators. The getters build each collaborator on
// first use from the AWS config; the SetX methods let tests substitute mock
// implementations before first use.
type Config struct {
	AWSConfig aws.Config
	Env       *Env
	Logger    *slog.Logger

	commandRunner command.Runner
	ecsClient     ecs.API
	ecrClient     docker.RegistryAPI
	s3Client      *s3.Client
	trackingStore tracking.Store
	emailer       notification.Emailer

	ecsSupplier      *awsclient.Supplier[awsecs.Client, awsecs.Options]
	ecrSupplier      *awsclient.Supplier[ecr.Client, ecr.Options]
	s3Supplier       *awsclient.Supplier[s3.Client, s3.Options]
	dynamoDBSupplier *awsclient.Supplier[dynamodb.Client, dynamodb.Options]
	sesSupplier      *awsclient.Supplier[ses.Client, ses.Options]
}

func NewConfig(awsConfig aws.Config, env *Env) *Config {
	return &Config{
		AWSConfig:        awsConfig,
		Env:              env,
		Logger:           logging.Default,
		ecsSupplier:      awsclient.NewSupplier(awsecs.NewFromConfig),
		ecrSupplier:      awsclient.NewSupplier(ecr.NewFromConfig),
		s3Supplier:       awsclient.NewSupplier(s3.NewFromConfig),
		dynamoDBSupplier: awsclient.NewSupplier(dynamodb.NewFromConfig),
		sesSupplier:      awsclient.NewSupplier(ses.NewFromConfig),
	}
}

func (c *Config) CommandRunner() command.Runner {
	if c.commandRunner == nil {
		c.commandRunner = command.NewRunner(c.Logger)
	}
	return c.commandRunner
}

// SetCommandRunner is for use in tests that would like to override the real runner with a mock implementation
func (c *Config) SetCommandRunner(runner command.Runner) {
	c.commandRunner = runner
}

func (c *Config) ECSClient() ecs.API {
	if c.ecsClient == nil {
		c.ecsClient = c.ecsSupplier.Get(c.AWSConfig)
	}
	return c.ecsClient
}

// SetECSClient is for use in tests that would like to override the real client with a mock implementation
func (c *Config) SetECSClient(client ecs.API) {
	c.ecsClient = client
}

func (c *Config) ECRClient() docker.RegistryAPI {
	if c.ecrClient == nil {
		c.ecrClient = c.ecrSupplier.Get(c.AWSConfig)
	}
	return c.ecrClient
}

// SetECRClient is for use in tests that would like to override the real client with a mock implementation
func (c *Config) SetECRClient(client docker.RegistryAPI) {
	c.ecrClient = client
}

func (c *Config) S3Client() *s3.Client {
	if c.s3Client == nil {
		c.s3Client = c.s3Supplier.Get(c.AWSConfig)
	}
	return c.s3Client
}

func (c *Config) TrackingStore() (tracking.Store, error) {
	if c.trackingStore == nil {
		if !c.Env.TrackingConfigured() {
			return nil, fmt.Errorf("deployment tracking is not configured: set env var %s", tracking.TableNameKey)
		}
		c.trackingStore = tracking.NewStore(c.dynamoDBSupplier.Get(c.AWSConfig), c.Logger, c.Env.TrackingTable)
	}
	return c.trackingStore, nil
}

// SetTrackingStore is for use in tests that would like to override the real store with a mock implementation
func (c *Config) SetTrackingStore(store tracking.Store) {
	c.trackingStore = store
}

func (c *Config) Emailer() (notification.Emailer, error) {
	if c.emailer == nil {
		if !c.Env.NotificationsConfigured() {
			return nil, fmt.Errorf("deployment notifications are not configured: set env vars %s and %s",
				notification.SenderKey, notification.RecipientsKey)
		}
		emailer, err := notification.NewEmailer(c.sesSupplier.Get(c.AWSConfig), c.Env.NotificationSender, c.Env.NotificationRecipients)
		if err != nil {
			return nil, err
		}
		c.emailer = emailer
	}
	return c.emailer, nil
}

// SetEmailer is for use in tests that would like to override the real emailer with a mock implementation
func (c *Config) SetEmailer(emailer notification.Emailer) {
	c.emailer = emailer
}

// Env holds the deployer's own environment variable settings. Tracking and notifications
// are optional features; each is on only when its variables are set.
type Env struct {
	TrackingTable          string
	NotificationSender     string
	NotificationRecipients []string
}

func LookupEnv() (*Env, error) {
	sender := os.Getenv(notification.SenderKey)
	recipients := splitRecipients(os.Getenv(notification.RecipientsKey))
	if (len(sender) == 0) != (len(recipients) == 0) {
		return nil, fmt.Errorf("env vars %s and %s must be set together",
			notification.SenderKey, notification.RecipientsKey)
	}
	return &Env{
		TrackingTable:          os.Getenv(tracking.TableNameKey),
		NotificationSender:     sender,
		NotificationRecipients: recipients,
	}, nil
}

func (e *Env) TrackingConfigured() bool {
	return len(e.TrackingTable) > 0
}

func (e *Env) NotificationsConfigured() bool {
	return len(e.NotificationSender) > 0 && len(e.NotificationRecipients) > 0
}

func splitRecipients(value string) []string {
	var recipients []string
	for _, recipient := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(recipient); len(trimmed) > 0 {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}
