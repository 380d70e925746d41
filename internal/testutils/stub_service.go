// Package testutils provides stub collaborators and deterministic helpers for macclient
// tests.
package testutils

import (
	"context"
	"fmt"

	"macclient/internal/macservice"
)

// Call records one lookup made against a StubService.
type Call struct {
	Method  string
	Version string
	Input   string
}

// StubService is an in-memory macservice.Service. Inputs listed in Errors fail with
// that error, inputs listed in Responses return that value, and anything else returns
// "<method>(<input>)".
type StubService struct {
	Endpoint  string
	Proxy     *macservice.Proxy
	Responses map[string]string
	Errors    map[string]error
	Panics    map[string]string
	CloseErr  error

	Calls      []Call
	CloseCount int
}

// NewStubService creates an empty StubService.
func NewStubService() *StubService {
	return &StubService{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
		Panics:    make(map[string]string),
	}
}

// Expand implements macservice.Service.
func (s *StubService) Expand(_ context.Context, version, typing string) (string, error) {
	return s.answer("expand", version, typing)
}

// Encode implements macservice.Service.
func (s *StubService) Encode(_ context.Context, version, alleleList string) (string, error) {
	return s.answer("encode", version, alleleList)
}

// Decode implements macservice.Service.
func (s *StubService) Decode(_ context.Context, code string) (string, error) {
	return s.answer("decode", "", code)
}

// Close implements macservice.Service.
func (s *StubService) Close() error {
	s.CloseCount++
	return s.CloseErr
}

func (s *StubService) answer(method, version, input string) (string, error) {
	s.Calls = append(s.Calls, Call{Method: method, Version: version, Input: input})
	if msg, ok := s.Panics[input]; ok {
		panic(msg)
	}
	if err, ok := s.Errors[input]; ok {
		return "", err
	}
	if resp, ok := s.Responses[input]; ok {
		return resp, nil
	}
	return fmt.Sprintf("%s(%s)", method, input), nil
}

// InvalidAllele returns an error the way the service reports an unknown typing.
func InvalidAllele(typing string) error {
	return fmt.Errorf("%w: Invalid allele %s", macservice.ErrInvalidInput, typing)
}

// ServiceFailure returns a transport-style failure.
func ServiceFailure(msg string) error {
	return fmt.Errorf("%w: %s", macservice.ErrService, msg)
}

// StubFactory builds StubServices and remembers every one it built.
type StubFactory struct {
	Created []*StubService
	// Err, when set, fails the next construction.
	Err error
	// Configure, when set, runs on every new stub before it is returned.
	Configure func(*StubService)
}

// Factory returns the macservice.Factory view of f.
func (f *StubFactory) Factory() macservice.Factory {
	return func(baseURL string, proxy *macservice.Proxy) (macservice.Service, error) {
		if f.Err != nil {
			err := f.Err
			f.Err = nil
			return nil, err
		}
		stub := NewStubService()
		stub.Endpoint = baseURL
		stub.Proxy = proxy
		if f.Configure != nil {
			f.Configure(stub)
		}
		f.Created = append(f.Created, stub)
		return stub, nil
	}
}

// Last returns the most recently built stub, or nil.
func (f *StubFactory) Last() *StubService {
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}
