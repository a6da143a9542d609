package config

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pennsieve/ecs-deployer/shared/deployment"
)

const s3Scheme = "s3"

// LoadSpec reads and parses a deployment spec document. Source is either a local file path
// or an s3://bucket/key URI.
func (c *Config) LoadSpec(ctx context.Context, source string) (*deployment.Spec, error) {
	data, err := c.readSpecSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return deployment.FromYAML(data)
}

func (c *Config) readSpecSource(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, s3Scheme+"://") {
		return c.readSpecObject(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("error reading spec file %s: %w", source, err)
	}
	return data, nil
}

func (c *Config) readSpecObject(ctx context.Context, source string) ([]byte, error) {
	sourceURL, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("error parsing spec source %s: %w", source, err)
	}
	bucket := sourceURL.Host
	key := strings.TrimPrefix(sourceURL.Path, "/")
	if len(bucket) == 0 || len(key) == 0 {
		return nil, fmt.Errorf("spec source %s is missing a bucket or a key", source)
	}
	out, err := c.S3Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting spec object %s: %w", source, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading spec object %s: %w", source, err)
	}
	return data, nil
}
