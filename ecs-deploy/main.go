package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pennsieve/ecs-deployer/ecs-deploy/config"
	"github.com/pennsieve/ecs-deployer/shared/awsconfig"
	"github.com/pennsieve/ecs-deployer/shared/logging"
	"github.com/spf13/cobra"
)

// Build information. Populated at build time via -ldflags.
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

// awsConfigFactory so that one could set the AWS config in a test pointing at httptest
// servers before calling a command's run function.
var awsConfigFactory = awsconfig.NewFactory()

var logger = logging.Default

var rootCmd = &cobra.Command{
	Use:   "ecs-deploy",
	Short: "Docker image and ECS deployment pipeline",
	Long: `ecs-deploy reads a declarative deployment spec and executes it in order:
builds and pushes Docker images, registers ECS task definitions, runs one-off
ECS tasks, and updates ECS services. The first failing step aborts the run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func main() {
	// The os.Exit call makes this function untestable, but a non-zero exit is the whole
	// point: CI jobs and operators watch the exit code. All the logic is in the commands'
	// handler functions. Everything here is setup.
	if err := Execute(); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func initConfig(ctx context.Context) (*config.Config, error) {
	awsConfig, err := awsConfigFactory.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting AWS config: %w", err)
	}
	configEnv, err := config.LookupEnv()
	if err != nil {
		return nil, fmt.Errorf("error reading environment variables: %w", err)
	}
	return config.NewConfig(*awsConfig, configEnv), nil
}
