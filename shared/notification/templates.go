package notification

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

//go:embed html
var templatesFS embed.FS

var deploymentCompleteTemplate *template.Template
var deploymentFailedTemplate *template.Template

func LoadTemplates() error {
	var err error
	if deploymentCompleteTemplate, err = template.ParseFS(templatesFS, "html/deployment-complete.html"); err != nil {
		return fmt.Errorf("error parsing deployment-complete template: %w", err)
	}
	if deploymentFailedTemplate, err = template.ParseFS(templatesFS, "html/deployment-failed.html"); err != nil {
		return fmt.Errorf("error parsing deployment-failed template: %w", err)
	}
	return nil
}

type deploymentComplete struct {
	DeploymentID string
	Environment  string
	SpecSource   string
	StepsTotal   int
	Duration     string
}

func DeploymentCompleteEmailBody(record *tracking.Record) (string, error) {
	data := deploymentComplete{
		DeploymentID: record.ID,
		Environment:  record.Environment,
		SpecSource:   record.SpecSource,
		StepsTotal:   record.StepsTotal,
		Duration:     recordDuration(record),
	}
	var builder strings.Builder
	if err := deploymentCompleteTemplate.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("error executing deployment-complete template: %w", err)
	}
	return builder.String(), nil
}

type deploymentFailed struct {
	DeploymentID string
	Environment  string
	SpecSource   string
	FailedStep   string
	Error        string
}

func DeploymentFailedEmailBody(record *tracking.Record, deployError error) (string, error) {
	data := deploymentFailed{
		DeploymentID: record.ID,
		Environment:  record.Environment,
		SpecSource:   record.SpecSource,
		FailedStep:   record.FailedStep,
		Error:        deployError.Error(),
	}
	var builder strings.Builder
	if err := deploymentFailedTemplate.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("error executing deployment-failed template: %w", err)
	}
	return builder.String(), nil
}

func recordDuration(record *tracking.Record) string {
	if record.FinishedAt == nil {
		return ""
	}
	return record.FinishedAt.Sub(record.StartedAt).Round(time.Second).String()
}
