package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pennsieve/ecs-deployer/shared/command"
)

// ImageSpec describes one image to build, or to re-tag from an existing local image, and push.
// The yaml tags are the key names of the deployment spec format.
type ImageSpec struct {
	// Name is the local tag prefix of the image
	Name       string `yaml:"name"`
	Dockerfile string `yaml:"dockerfile"`
	// TagCommand is a shell command whose standard output is the image tag
	TagCommand string `yaml:"tagCommand"`
	// Repository is the remote registry path the image is pushed to
	Repository string `yaml:"repository"`
	// Build selects between building from Dockerfile and re-tagging an existing local image
	Build bool `yaml:"build"`
}

type Image struct {
	spec   ImageSpec
	runner command.Runner
	logger *slog.Logger

	// compute-once cell for Tag: once tagResolved is set, tag is never recomputed
	tag         string
	tagResolved bool
}

func NewImage(spec ImageSpec, runner command.Runner, logger *slog.Logger) *Image {
	return &Image{
		spec:   spec,
		runner: runner,
		logger: logger.With(slog.String("image", spec.Name)),
	}
}

func (i *Image) Name() string {
	return i.spec.Name
}

// Tag runs the image's tag command and returns its output stripped of surrounding whitespace.
// The command runs at most once per Image: later calls return the cached value without
// re-executing, even if the command's output would have changed in the meantime.
func (i *Image) Tag(ctx context.Context) (string, error) {
	if !i.tagResolved {
		out, err := i.runner.Run(ctx, command.Shell(i.spec.TagCommand))
		if err != nil {
			return "", fmt.Errorf("error resolving tag for image %s: %w", i.spec.Name, err)
		}
		i.tag = strings.TrimSpace(out)
		i.tagResolved = true
	}
	return i.tag, nil
}

// TaggedName is name:tag.
func (i *Image) TaggedName(ctx context.Context) (string, error) {
	tag, err := i.Tag(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", i.spec.Name, tag), nil
}

// TaggedRepoName is repository:tag.
func (i *Image) TaggedRepoName(ctx context.Context) (string, error) {
	tag, err := i.Tag(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", i.spec.Repository, tag), nil
}

// BuildImage builds the image from its Dockerfile and tags the result with the repository name.
func (i *Image) BuildImage(ctx context.Context) error {
	taggedName, err := i.TaggedName(ctx)
	if err != nil {
		return err
	}
	taggedRepoName, err := i.TaggedRepoName(ctx)
	if err != nil {
		return err
	}
	i.logger.Info("building image", slog.String("taggedName", taggedName))
	if _, err := i.runner.Run(ctx, command.Args("docker", "build", "-t", taggedName, "-f", i.spec.Dockerfile, ".")); err != nil {
		return err
	}
	_, err = i.runner.Run(ctx, command.Args("docker", "tag", taggedName, taggedRepoName))
	return err
}

// TagImage tags an already-built local image with the repository name instead of building.
func (i *Image) TagImage(ctx context.Context) error {
	taggedRepoName, err := i.TaggedRepoName(ctx)
	if err != nil {
		return err
	}
	i.logger.Info("re-tagging existing image", slog.String("taggedRepoName", taggedRepoName))
	_, err = i.runner.Run(ctx, command.Args("docker", "tag", i.spec.Name, taggedRepoName))
	return err
}

func (i *Image) Push(ctx context.Context) error {
	taggedRepoName, err := i.TaggedRepoName(ctx)
	if err != nil {
		return err
	}
	i.logger.Info("pushing image", slog.String("taggedRepoName", taggedRepoName))
	_, err = i.runner.Run(ctx, command.Args("docker", "push", taggedRepoName))
	return err
}

// Handle builds or re-tags the image, pushes it, and returns the pushed repository:tag for
// use as the image's entry in the deployment's image map.
func (i *Image) Handle(ctx context.Context) (string, error) {
	if i.spec.Build {
		if err := i.BuildImage(ctx); err != nil {
			return "", err
		}
	} else if err := i.TagImage(ctx); err != nil {
		return "", err
	}
	if err := i.Push(ctx); err != nil {
		return "", err
	}
	return i.TaggedRepoName(ctx)
}
