// Package resolver turns shared-file page URLs into direct download links.
// A Router picks the adapter for a URL by host; each adapter knows one site.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Beyllin/link/internal/redact"
)

var (
	// ErrUnsupported is returned for URLs no registered site handles
	ErrUnsupported = errors.New("unsupported site")

	// ErrNoLink means the site answered but offered no direct link
	ErrNoLink = errors.New("no direct link found")
)

// Resolver resolves a page URL into a direct download link.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Func adapts an ordinary function to the Resolver interface
type Func func(ctx context.Context, rawURL string) (string, error)

// Resolve calls f(ctx, rawURL)
func (f Func) Resolve(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// Site describes a supported site for user-facing listings.
type Site struct {
	Name    string
	Example string
	Notes   string
}

// Route binds a site's domains to the resolver that handles them.
type Route struct {
	Site
	// Domains match the URL host exactly or as a parent domain
	Domains  []string
	Resolver Resolver
}

func (r Route) matches(host string) bool {
	for _, d := range r.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Router dispatches URLs to the first route whose domain matches.
type Router struct {
	routes []Route
	logger *slog.Logger
}

// NewRouter creates a router with the given routes, in priority order
func NewRouter(logger *slog.Logger, routes ...Route) *Router {
	return &Router{
		routes: routes,
		logger: logger.With("component", "resolver"),
	}
}

func hostOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

func (r *Router) route(rawURL string) (Route, bool) {
	host, ok := hostOf(rawURL)
	if !ok {
		return Route{}, false
	}
	for _, route := range r.routes {
		if route.matches(host) {
			return route, true
		}
	}
	return Route{}, false
}

// Supports reports whether some route handles rawURL
func (r *Router) Supports(rawURL string) bool {
	_, ok := r.route(rawURL)
	return ok
}

// Resolve hands rawURL to the matching site's resolver.
func (r *Router) Resolve(ctx context.Context, rawURL string) (string, error) {
	route, ok := r.route(rawURL)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, rawURL)
	}

	link, err := route.Resolver.Resolve(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		r.logger.Warn("resolution failed",
			"site", route.Name,
			"error", redact.Error(err))
		return "", fmt.Errorf("%s: %w", route.Name, err)
	}

	r.logger.Debug("resolved link", "site", route.Name)
	return link, nil
}

// Sites lists the registered sites in priority order
func (r *Router) Sites() []Site {
	sites := make([]Site, 0, len(r.routes))
	for _, route := range r.routes {
		sites = append(sites, route.Site)
	}
	return sites
}
