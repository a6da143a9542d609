package docker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/pennsieve/ecs-deployer/shared/command"
)

// RegistryAPI is the subset of the ECR client needed for registry login.
type RegistryAPI interface {
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// RegistryLogin authenticates the local Docker daemon against ECR. The authorization token
// returned by ECR decodes to user:password; the password goes to docker login on stdin so
// that it never appears in a command line.
func RegistryLogin(ctx context.Context, client RegistryAPI, runner command.Runner, logger *slog.Logger) error {
	out, err := client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return fmt.Errorf("error getting ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return errors.New("ECR returned no authorization data")
	}
	for _, auth := range out.AuthorizationData {
		decoded, err := base64.StdEncoding.DecodeString(aws.ToString(auth.AuthorizationToken))
		if err != nil {
			return fmt.Errorf("error decoding ECR authorization token: %w", err)
		}
		user, password, found := strings.Cut(string(decoded), ":")
		if !found {
			return errors.New("unexpected ECR authorization token format")
		}
		endpoint := aws.ToString(auth.ProxyEndpoint)
		logger.Info("logging in to image registry", slog.String("endpoint", endpoint))
		login := command.Args("docker", "login", "-u", user, "--password-stdin", endpoint).WithStdin(password)
		if _, err := runner.Run(ctx, login); err != nil {
			return err
		}
	}
	return nil
}
