package imagescan

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	img "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
)

// Scanner measures container images through a Docker engine.
type Scanner struct {
	cli *client.Client
}

// New connects to the engine at host, or to the one DOCKER_HOST names when host is empty.
func New(host string) (*Scanner, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Scanner{cli: cli}, nil
}

func (s *Scanner) Close() error {
	return s.cli.Close()
}

// ImageSize returns the size in bytes of ref, pulling it first when the engine does not have it.
func (s *Scanner) ImageSize(ctx context.Context, ref string) (int64, error) {
	ref = imageRef(ref)
	if _, err := s.cli.Ping(ctx); err != nil {
		return 0, fmt.Errorf("cannot reach docker daemon: %w", err)
	}

	info, err := s.cli.ImageInspect(ctx, ref)
	if err == nil {
		return info.Size, nil
	}
	if !client.IsErrNotFound(err) {
		return 0, fmt.Errorf("inspect %s: %w", ref, err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	logrus.WithField("image", ref).Info("pulling image to measure it")
	if err := pullIfNeeded(pullCtx, s.cli, ref); err != nil {
		return 0, fmt.Errorf("pull %s: %w", ref, err)
	}
	info, err = s.cli.ImageInspect(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("inspect %s: %w", ref, err)
	}
	return info.Size, nil
}

func pullIfNeeded(ctx context.Context, cli *client.Client, image string) error {
	reader, err := cli.ImagePull(ctx, image, img.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader) // eat the progress stream
	return nil
}

// HumanSize formats bytes the way the dashboard shows image sizes, e.g. "1.2GB".
func HumanSize(n int64) string {
	return units.HumanSize(float64(n))
}

// FirstImage picks the first reference out of a package's free-form image list.
func FirstImage(names string) string {
	fields := strings.FieldsFunc(names, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func imageRef(img string) string {
	// allow "python:3.12", "alpine/git:latest", etc.
	if strings.Contains(img, "/") || strings.Contains(img, ":") {
		return img
	}
	return "docker.io/library/" + img + ":latest"
}
