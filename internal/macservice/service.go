// Package macservice defines the allele code lookup service consumed by macclient and
// provides its HTTP implementation.
package macservice

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Service is the remote lookup collaborator. Failures wrap ErrInvalidInput when the
// input is not a recognized allele code and ErrService for anything else.
type Service interface {
	// Expand converts a MAC typing into its allele list for the given IMGT/HLA release.
	// An empty version lets the service pick its current release.
	Expand(ctx context.Context, version, typing string) (string, error)

	// Encode converts an allele list into a MAC typing for the given release.
	Encode(ctx context.Context, version, alleleList string) (string, error)

	// Decode converts a MAC typing into its human-readable form.
	Decode(ctx context.Context, code string) (string, error)

	// Close releases connection resources. Calling it more than once is allowed.
	Close() error
}

// Factory constructs a Service bound to an endpoint and an optional proxy.
type Factory func(baseURL string, proxy *Proxy) (Service, error)

// Proxy describes an outbound proxy. Scheme is empty when none was given.
type Proxy struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Scheme string `yaml:"scheme,omitempty"`
}

// URL returns the proxy as a URL, defaulting the scheme to http.
func (p *Proxy) URL() *url.URL {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
}

func (p *Proxy) String() string {
	if p == nil {
		return ""
	}
	if p.Scheme == "" {
		return fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", p.Scheme, p.Host, p.Port)
}
