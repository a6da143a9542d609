package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Factory loads the process's AWS config on the first call to Get and hands out that same
// instance afterwards. Set overrides the loaded config; tests use it to point service
// clients at local endpoints.
type Factory struct {
	awsConfig *aws.Config
	optFns    []func(*config.LoadOptions) error
}

func NewFactory(optFns ...func(*config.LoadOptions) error) *Factory {
	return &Factory{optFns: optFns}
}

func (f *Factory) Get(ctx context.Context) (*aws.Config, error) {
	if f.awsConfig == nil {
		cfg, err := config.LoadDefaultConfig(ctx, f.optFns...)
		if err != nil {
			return nil, fmt.Errorf("error loading default AWS config: %w", err)
		}
		f.awsConfig = &cfg
	}
	return f.awsConfig, nil
}

func (f *Factory) Set(awsConfig *aws.Config) {
	f.awsConfig = awsConfig
}
