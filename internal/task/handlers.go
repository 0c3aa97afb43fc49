package task

import (
	"context"
	"strings"
)

// Resolver turns a shared-file URL into a direct download link.
// internal/resolver.Router satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Renderer produces the text for a named bot command.
// internal/command.Catalog satisfies it.
type Renderer interface {
	Render(name string) (string, error)
}

// progress reported before the resolver is called
const downloadStartProgress = 10

// NewDownloadHandler returns the handler for KindDownload tasks.
func NewDownloadHandler(resolver Resolver) Handler {
	return HandlerFunc(func(ctx context.Context, job Job) (string, error) {
		url := strings.TrimSpace(job.Payload[PayloadURL])
		if url == "" {
			return "", ErrMissingURL
		}

		job.SetProgress(downloadStartProgress)
		link, err := resolver.Resolve(ctx, url)
		if err != nil {
			return "", err
		}
		job.SetProgress(100)
		return link, nil
	})
}

// NewCommandHandler returns the handler for KindCommand tasks.
func NewCommandHandler(renderer Renderer) Handler {
	return HandlerFunc(func(_ context.Context, job Job) (string, error) {
		name := strings.TrimSpace(job.Payload[PayloadCommand])
		if name == "" {
			return "", ErrMissingCommand
		}
		return renderer.Render(name)
	})
}
