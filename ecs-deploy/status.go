package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pennsieve/ecs-deployer/ecs-deploy/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent deployments for an environment",
	Long: `Prints the most recent deployment records for an environment from the
tracking store, newest first.`,
	RunE: runStatus,
}

var (
	statusEnvironment string
	statusLimit       int32
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusEnvironment, "environment", "", "environment to show deployments for")
	statusCmd.Flags().Int32Var(&statusLimit, "limit", 10, "maximum number of deployments to show")
	_ = statusCmd.MarkFlagRequired("environment")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	statusConfig, err := initConfig(ctx)
	if err != nil {
		return err
	}
	return Status(ctx, statusConfig, cmd.OutOrStdout(), statusEnvironment, statusLimit)
}

// Status prints the latest deployment records for an environment, newest first. It requires
// the tracking store to be configured.
//
// runStatus above only does setup. The logic is here, so that tests can call it with a
// Config wired up with mocks.
func Status(ctx context.Context, statusConfig *config.Config, out io.Writer, environment string, limit int32) error {
	store, err := statusConfig.TrackingStore()
	if err != nil {
		return err
	}
	deployments, err := store.Latest(ctx, environment, limit)
	if err != nil {
		return err
	}
	if len(deployments) == 0 {
		_, err := fmt.Fprintf(out, "No deployments found for environment %s\n", environment)
		return err
	}
	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, "ID\tSTATUS\tSTARTED_AT\tFINISHED_AT"); err != nil {
		return err
	}
	for _, deployment := range deployments {
		if _, err := fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			deployment.ID,
			deployment.Status,
			formatRecordTime(&deployment.StartedAt),
			formatRecordTime(deployment.FinishedAt)); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func formatRecordTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
