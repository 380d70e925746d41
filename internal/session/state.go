// Package session holds the mutable state of a macclient run: the active operation,
// the IMGT/HLA database version, the service endpoint, the proxy and the single live
// service handle.
package session

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"macclient/internal/logger"
	"macclient/internal/macservice"
)

// State is owned by the dispatcher and never shared between goroutines.
type State struct {
	kind            Kind
	databaseVersion string
	endpointURL     string
	proxy           *macservice.Proxy

	factory macservice.Factory
	service macservice.Service
	closed  bool
}

// Config seeds a State.
type Config struct {
	EndpointURL     string
	DatabaseVersion string
	Proxy           *macservice.Proxy
	Kind            Kind
}

// New creates a State and connects its first service handle.
func New(factory macservice.Factory, cfg Config) (*State, error) {
	s := &State{
		kind:    cfg.Kind,
		proxy:   cfg.Proxy,
		factory: factory,
	}
	if cfg.DatabaseVersion != "" {
		s.SetDatabaseVersion(cfg.DatabaseVersion)
	}

	endpoint := cfg.EndpointURL
	if endpoint == "" {
		endpoint = macservice.DefaultBaseURL
	}
	svc, err := factory(endpoint, s.proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to create service for %s: %w", endpoint, err)
	}
	s.service = svc
	s.endpointURL = endpoint
	return s, nil
}

// Operation returns the active operation.
func (s *State) Operation() Operation {
	return Operation{kind: s.kind, state: s}
}

// SwitchOperation changes the active operation and nothing else.
func (s *State) SwitchOperation(kind Kind) Operation {
	s.kind = kind
	return s.Operation()
}

// DatabaseVersion returns the IMGT/HLA release used by expand and encode, or "".
func (s *State) DatabaseVersion() string {
	return s.databaseVersion
}

// SetDatabaseVersion stores the release used by subsequent expand and encode calls.
func (s *State) SetDatabaseVersion(version string) {
	if _, err := semver.NewVersion(version); err != nil {
		logger.Warn("Database version is not a release number", "version", version, "error", err)
	}
	s.databaseVersion = version
}

// Proxy returns the stored proxy, or nil.
func (s *State) Proxy() *macservice.Proxy {
	return s.proxy
}

// SetProxy stores the proxy used the next time the endpoint is set.
func (s *State) SetProxy(proxy *macservice.Proxy) {
	s.proxy = proxy
}

// Endpoint returns the URL of the live service handle.
func (s *State) Endpoint() string {
	return s.endpointURL
}

// Service returns the live service handle, or nil after Close.
func (s *State) Service() macservice.Service {
	return s.service
}

// SetEndpoint releases the current handle and connects a new one to url through the
// stored proxy. A release or construction failure leaves the state without a handle.
func (s *State) SetEndpoint(url string) error {
	if s.closed {
		return fmt.Errorf("session closed")
	}

	if s.service != nil {
		old := s.service
		s.service = nil
		if err := old.Close(); err != nil {
			return fmt.Errorf("failed to release service for %s: %w", s.endpointURL, err)
		}
	}

	svc, err := s.factory(url, s.proxy)
	if err != nil {
		return fmt.Errorf("failed to create service for %s: %w", url, err)
	}
	s.service = svc
	s.endpointURL = url

	logger.Debug("Service endpoint changed", "endpoint", url, "proxy", s.proxy.String())
	return nil
}

// Close releases the live service handle. Only the first call has any effect.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.service == nil {
		return nil
	}
	svc := s.service
	s.service = nil
	return svc.Close()
}
