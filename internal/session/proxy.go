package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"macclient/internal/macservice"
)

// ErrInvalidProxy is returned for proxy settings whose port is not a number.
var ErrInvalidProxy = errors.New("invalid proxy")

// ParseProxy parses "[scheme://]host:port". A value without a colon after the scheme
// is ignored and yields a nil proxy without error.
func ParseProxy(value string) (*macservice.Proxy, error) {
	var scheme string
	rest := value
	if before, after, found := strings.Cut(value, "://"); found {
		scheme = before
		rest = after
	}

	if !strings.Contains(rest, ":") {
		return nil, nil
	}

	parts := strings.Split(rest, ":")
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w %q: port: %w", ErrInvalidProxy, value, err)
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w %q: port %d out of range", ErrInvalidProxy, value, port)
	}

	return &macservice.Proxy{
		Host:   parts[0],
		Port:   port,
		Scheme: scheme,
	}, nil
}
