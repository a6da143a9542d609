package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/pennsieve/ecs-deployer/shared/tracking"
)

const SenderKey = "DEPLOYMENT_NOTIFICATION_SENDER"
const RecipientsKey = "DEPLOYMENT_NOTIFICATION_RECIPIENTS"

type SESEmailer struct {
	client     *ses.Client
	sender     string
	recipients []string
	charSet    string
}

func NewEmailer(client *ses.Client, sender string, recipients []string) (Emailer, error) {
	if err := LoadTemplates(); err != nil {
		return nil, err
	}
	return &SESEmailer{
		client:     client,
		sender:     sender,
		recipients: recipients,
		charSet:    "UTF-8",
	}, nil
}

type htmlEmail struct {
	Recipients []string
	Subject    string
	Body       string
}

func (e *SESEmailer) SendDeploymentComplete(ctx context.Context, record *tracking.Record) error {
	body, err := DeploymentCompleteEmailBody(record)
	if err != nil {
		return err
	}
	return e.sendEmail(ctx, htmlEmail{
		Recipients: e.recipients,
		Subject:    fmt.Sprintf("Deployment of %s complete", record.Environment),
		Body:       body,
	})
}

func (e *SESEmailer) SendDeploymentFailed(ctx context.Context, record *tracking.Record, deployError error) error {
	body, err := DeploymentFailedEmailBody(record, deployError)
	if err != nil {
		return err
	}
	return e.sendEmail(ctx, htmlEmail{
		Recipients: e.recipients,
		Subject:    fmt.Sprintf("Deployment of %s failed", record.Environment),
		Body:       body,
	})
}

func (e *SESEmailer) sendEmail(ctx context.Context, email htmlEmail) error {
	sendInput := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: email.Recipients,
		},
		Message: &types.Message{
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(email.Body),
					Charset: aws.String(e.charSet),
				},
			},
			Subject: &types.Content{
				Data:    aws.String(email.Subject),
				Charset: aws.String(e.charSet),
			},
		},
		Source: aws.String(e.sender),
	}
	_, err := e.client.SendEmail(ctx, sendInput)
	if err != nil {
		return fmt.Errorf("error sending email from %s to %s: %w",
			e.sender,
			strings.Join(email.Recipients, ", "),
			err)
	}
	return nil
}
