package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when an operation references an unknown node id.
var ErrNodeNotFound = errors.New("node not found")

// ErrUnknownDefinition is returned when a node references an unregistered definition.
var ErrUnknownDefinition = errors.New("unknown definition")

// ErrTypeMismatch is returned when a connection joins incompatible kinds.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrNoSuchPort is returned when the target slot or parameter does not exist.
var ErrNoSuchPort = errors.New("no such port")

// ErrSelfConnection is returned when an edge would connect a node to itself.
var ErrSelfConnection = errors.New("self connection")

// ErrEdgeNotFound is returned when removing an edge that is not in the graph.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrDuplicateNode is returned when adding a node whose id is already taken.
var ErrDuplicateNode = errors.New("duplicate node id")

// ConnectionError describes a rejected connection request.
type ConnectionError struct {
	Source string
	Target string
	// Port is the input index, or the parameter key for modulation.
	Port string
	Want Kind
	Got  Kind
	Err  error
}

func (e *ConnectionError) Error() string {
	if errors.Is(e.Err, ErrTypeMismatch) {
		want, got := e.Want, e.Got
		if want == KindNone {
			want = "none"
		}
		if got == KindNone {
			got = "none"
		}
		return fmt.Sprintf("connect %s -> %s[%s]: %v: want %s, got %s", e.Source, e.Target, e.Port, e.Err, want, got)
	}
	return fmt.Sprintf("connect %s -> %s[%s]: %v", e.Source, e.Target, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ErrUnknownParam is returned when setting a parameter the node's script does not declare.
var ErrUnknownParam = errors.New("unknown parameter")
