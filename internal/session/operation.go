package session

import (
	"context"
	"fmt"
)

// Kind identifies which lookup an Operation performs.
type Kind int

const (
	// Expand converts a MAC typing into its allele list.
	Expand Kind = iota
	// Encode converts an allele list into a MAC typing.
	Encode
	// Decode converts a MAC typing into its readable form.
	Decode
)

var kindNames = map[Kind]string{
	Expand: "expand",
	Encode: "encode",
	Decode: "decode",
}

// String returns the mode keyword for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a mode keyword to its Kind.
func ParseKind(name string) (Kind, bool) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, true
		}
	}
	return 0, false
}

// Performer applies one lookup to a single input.
type Performer interface {
	Perform(ctx context.Context, input string) (string, error)
	Name() string
}

// Operation is a lookup bound to a session. It reads the database version and the
// service handle from the session on every call, so reconfiguring the session never
// requires a new Operation.
type Operation struct {
	kind  Kind
	state *State
}

// Kind returns the variant of the operation.
func (o Operation) Kind() Kind {
	return o.kind
}

// Name returns the mode keyword, used in output and logs.
func (o Operation) Name() string {
	return o.kind.String()
}

// Perform runs the lookup against the session's current service.
func (o Operation) Perform(ctx context.Context, input string) (string, error) {
	svc := o.state.Service()
	if svc == nil {
		return "", fmt.Errorf("%s: no service configured", o.Name())
	}

	switch o.kind {
	case Expand:
		return svc.Expand(ctx, o.state.DatabaseVersion(), input)
	case Encode:
		return svc.Encode(ctx, o.state.DatabaseVersion(), input)
	case Decode:
		return svc.Decode(ctx, input)
	default:
		return "", fmt.Errorf("unknown operation %s", o.kind)
	}
}
