package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFrameStart EventType = "frame_start"
	EventFrameEnd   EventType = "frame_end"
	EventNodeError  EventType = "node_error"
	EventCompile    EventType = "compile"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Frame     uint64    `json:"frame"`
}

// FrameEvent marks the boundaries of a frame evaluation.
type FrameEvent struct {
	EventBase
	Version  uint64        `json:"version"`
	Nodes    int           `json:"nodes"`
	Duration time.Duration `json:"duration,omitempty"`
}

// NodeErrorEvent reports a contained failure of one node.
type NodeErrorEvent struct {
	EventBase
	NodeID  string `json:"node_id"`
	Compile bool   `json:"compile"`
	Err     error  `json:"-"`
}

// CompileEvent reports a script (re)compilation.
type CompileEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnFrameStart func(context.Context, *FrameEvent)
	OnFrameEnd   func(context.Context, *FrameEvent)
	OnNodeError  func(context.Context, *NodeErrorEvent)
	OnCompile    func(context.Context, *CompileEvent)
}

// Merge combines two hook sets; both callbacks run when both are set.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnFrameStart: chain(h.OnFrameStart, o.OnFrameStart),
		OnFrameEnd:   chain(h.OnFrameEnd, o.OnFrameEnd),
		OnNodeError:  chain(h.OnNodeError, o.OnNodeError),
		OnCompile:    chain(h.OnCompile, o.OnCompile),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
