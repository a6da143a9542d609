package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pennsieve/ecs-deployer/ecs-deploy/config"
	"github.com/pennsieve/ecs-deployer/shared/docker"
	"github.com/pennsieve/ecs-deployer/shared/notification"
	"github.com/pennsieve/ecs-deployer/shared/pipeline"
	"github.com/pennsieve/ecs-deployer/shared/tracking"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run a deployment pipeline from a deployment spec",
	Long: `Reads the deployment spec given by --spec and executes its steps in order:
images, task definitions, tasks, services. The first failing step aborts the
run; already applied steps are not rolled back.`,
	RunE: runDeploy,
}

var (
	deploySpecSource  string
	deployEnvironment string
	deployDryRun      bool
)

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVar(&deploySpecSource, "spec", "", "deployment spec: a local file path or an s3://bucket/key URI")
	deployCmd.Flags().StringVar(&deployEnvironment, "environment", "", "override the environment named in the spec")
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "log the step plan without executing it")
	_ = deployCmd.MarkFlagRequired("spec")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	deployConfig, err := initConfig(ctx)
	if err != nil {
		return err
	}
	return Deploy(ctx, deployConfig, deploySpecSource, deployEnvironment, deployDryRun)
}

// Deploy loads the deployment spec from specSource and executes its steps in order.
//
// runDeploy above only does setup. All the deployment logic is here, so that tests can call
// it with a Config wired up with mocks.
func Deploy(ctx context.Context, deployConfig *config.Config, specSource, environmentOverride string, dryRun bool) error {
	spec, err := deployConfig.LoadSpec(ctx, specSource)
	if err != nil {
		return err
	}
	if len(environmentOverride) > 0 {
		spec.Environment = environmentOverride
	}
	steps, err := spec.Steps(deployConfig.CommandRunner(), deployConfig.ECSClient(), deployConfig.Logger)
	if err != nil {
		return err
	}

	run := pipeline.NewRun()
	logger := deployConfig.Logger.With(slog.Group("deployment",
		slog.String("id", run.ID),
		slog.String("environment", spec.Environment)))

	if dryRun {
		logger.Info("dry run; no steps will be executed", slog.Int("steps", len(steps)))
		for i, step := range steps {
			logger.Info("planned step",
				slog.Int("position", i+1),
				slog.Int("of", len(steps)),
				slog.String("kind", string(step.Kind())),
				slog.String("name", step.Name()))
		}
		return nil
	}

	if spec.RegistryLogin {
		if err := docker.RegistryLogin(ctx, deployConfig.ECRClient(), deployConfig.CommandRunner(), logger); err != nil {
			return err
		}
	}

	finalizer, err := newDeploymentFinalizer(deployConfig, logger)
	if err != nil {
		return err
	}
	record := tracking.NewRecord(run.ID, spec.Environment, specSource, len(steps))
	if err := finalizer.start(ctx, record); err != nil {
		return err
	}

	logger.Info("starting deployment", slog.Int("steps", len(steps)))
	if deployErr := pipeline.NewPipeline(steps, logger).Execute(ctx, run); deployErr != nil {
		errs := finalizer.failed(ctx, record, deployErr)
		errs = append(errs, deployErr)
		return errors.Join(errs...)
	}

	for _, finalizeErr := range finalizer.completed(ctx, record) {
		// the steps themselves all succeeded. So we just log tracking and notification
		// errors if there are any
		logger.Error("deployment succeeded but there were non-fatal errors", slog.Any("error", finalizeErr))
	}
	logger.Info("deployment complete", slog.Int("steps", len(steps)))
	return nil
}

// deploymentFinalizer handles tracking and notification for a deployment run. Either
// collaborator can be absent since tracking and notifications are switched on separately by
// their environment variables.
type deploymentFinalizer struct {
	store   tracking.Store
	emailer notification.Emailer
	logger  *slog.Logger
}

func newDeploymentFinalizer(deployConfig *config.Config, logger *slog.Logger) (*deploymentFinalizer, error) {
	finalizer := &deploymentFinalizer{logger: logger}
	if deployConfig.Env.TrackingConfigured() {
		store, err := deployConfig.TrackingStore()
		if err != nil {
			return nil, err
		}
		finalizer.store = store
	} else {
		logger.Warn("deployment tracking is not configured; concurrent deployments will not be detected")
	}
	if deployConfig.Env.NotificationsConfigured() {
		emailer, err := deployConfig.Emailer()
		if err != nil {
			return nil, err
		}
		finalizer.emailer = emailer
	}
	return finalizer, nil
}

// start saves the in-progress tracking record, acquiring the environment's deployment lock.
// A DeploymentInProgressError here aborts the run before any step executes.
func (f *deploymentFinalizer) start(ctx context.Context, record *tracking.Record) error {
	if f.store == nil {
		return nil
	}
	return f.store.SaveInProgress(ctx, record)
}

// failed finishes tracking and notification for a failed deployment. The returned errors
// are finalization problems only, not the deployment failure itself.
func (f *deploymentFinalizer) failed(ctx context.Context, record *tracking.Record, deployErr error) []error {
	var failedStep string
	var stepError *pipeline.StepError
	if errors.As(deployErr, &stepError) {
		failedStep = stepError.StepName
	}
	var errs []error
	if f.store != nil {
		if err := f.store.Fail(ctx, record, failedStep, deployErr.Error()); err != nil {
			errs = append(errs, fmt.Errorf("error updating tracking record: %w", err))
		}
	}
	if f.emailer != nil {
		if err := f.emailer.SendDeploymentFailed(ctx, record, deployErr); err != nil {
			errs = append(errs, fmt.Errorf("error sending deployment failed notification: %w", err))
		}
	}
	return errs
}

// completed finishes tracking and notification for a successful deployment.
func (f *deploymentFinalizer) completed(ctx context.Context, record *tracking.Record) []error {
	var errs []error
	if f.store != nil {
		if err := f.store.Complete(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("error updating tracking record: %w", err))
		}
	}
	if f.emailer != nil {
		if err := f.emailer.SendDeploymentComplete(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("error sending deployment complete notification: %w", err))
		}
	}
	return errs
}
