package ecs

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// ServiceSpec describes an update applied to live services in a cluster. Name is matched
// against service ARNs as a prefix of the service name, so "billing" matches both billing
// and billing-worker; ExactMatch opts into anchored matching instead. Config is passed
// through verbatim as the UpdateService request, using the ECS API's own key names.
type ServiceSpec struct {
	Name       string         `yaml:"name"`
	Cluster    string         `yaml:"cluster"`
	ExactMatch bool           `yaml:"exactMatch"`
	Config     map[string]any `yaml:"config"`
}

type Service struct {
	name       string
	cluster    string
	exactMatch bool
	config     map[string]any
	client     API
	logger     *slog.Logger
}

func NewService(spec ServiceSpec, client API, logger *slog.Logger) *Service {
	return &Service{
		name:       spec.Name,
		cluster:    spec.Cluster,
		exactMatch: spec.ExactMatch,
		config:     spec.Config,
		client:     client,
		logger:     logger.With(slog.String("service", spec.Name)),
	}
}

func (s *Service) Name() string {
	return s.name
}

// matchPattern treats the spec's name as a regex fragment, as the deployment config format
// has always allowed. ExactMatch anchors the name through end of ARN and also accepts the
// final path segment of cluster-qualified service ARNs.
func (s *Service) matchPattern() (*regexp.Regexp, error) {
	if s.exactMatch {
		return regexp.Compile(fmt.Sprintf(`^arn:aws:ecs:[^:]+:[^:]+:service/(?:[^/]+/)?%s$`, s.name))
	}
	return regexp.Compile(fmt.Sprintf(`^arn:aws:ecs:[^:]+:[^:]+:service/%s`, s.name))
}

// Update lists the cluster's services and applies this entity's config to every matching
// ARN, in the order the API listed them. There is no rollback on partial failure: services
// updated before the failing call stay updated and later matches are never attempted.
func (s *Service) Update(ctx context.Context) ([]string, error) {
	pattern, err := s.matchPattern()
	if err != nil {
		return nil, fmt.Errorf("error compiling match pattern of service %s: %w", s.name, err)
	}
	listIn := &ecs.ListServicesInput{Cluster: aws.String(s.cluster)}
	var arns []string
	for morePages := true; morePages; morePages = listIn.NextToken != nil {
		out, err := s.client.ListServices(ctx, listIn)
		if err != nil {
			return nil, serviceCallError("ListServices", err)
		}
		arns = append(arns, out.ServiceArns...)
		listIn.NextToken = out.NextToken
	}
	var updated []string
	for _, arn := range arns {
		if !pattern.MatchString(arn) {
			continue
		}
		in := &ecs.UpdateServiceInput{}
		if err := decodeConfig(s.config, in); err != nil {
			return updated, fmt.Errorf("error decoding config of service %s: %w", s.name, err)
		}
		in.Cluster = aws.String(s.cluster)
		in.Service = aws.String(arn)
		s.logger.Info("updating service", slog.String("arn", arn))
		if _, err := s.client.UpdateService(ctx, in); err != nil {
			return updated, serviceCallError("UpdateService", err)
		}
		updated = append(updated, arn)
	}
	if len(updated) == 0 {
		s.logger.Warn("no services matched",
			slog.String("cluster", s.cluster),
			slog.String("name", s.name))
	}
	return updated, nil
}

// Handle applies the update and summarizes how many services it reached.
func (s *Service) Handle(ctx context.Context) (string, error) {
	updated, err := s.Update(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("updated %d service(s)", len(updated)), nil
}
