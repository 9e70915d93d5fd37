// Package input virtualizes keyboard state for frame-based scripts.
//
// Raw key events arrive at any time on any goroutine. A frame samples them once:
// BeginFrame latches the presses seen since the previous frame into a one-shot
// set, EndFrame clears that set. Held keys are tracked continuously.
package input

import (
	"maps"
	"sync"
)

// Keyboard implements ports.KeyListener.
type Keyboard struct {
	mu        sync.Mutex
	held      map[string]bool
	pending   map[string]bool
	pressed   map[string]bool
	textFocus bool
}

// NewKeyboard creates an idle keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{
		held:    make(map[string]bool),
		pending: make(map[string]bool),
		pressed: make(map[string]bool),
	}
}

// KeyDown records a physical press. Auto-repeat of a held key does not count
// as a new press.
func (k *Keyboard) KeyDown(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.textFocus || key == "" {
		return
	}
	if !k.held[key] {
		k.pending[key] = true
	}
	k.held[key] = true
}

// KeyUp records a release.
func (k *Keyboard) KeyUp(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.textFocus {
		return
	}
	delete(k.held, key)
}

// SetTextFocus toggles text-entry mode. While focused, events are ignored so that
// typing into an editor does not drive scripts. Gaining focus releases held keys.
func (k *Keyboard) SetTextFocus(focused bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.textFocus = focused
	if focused {
		clear(k.held)
		clear(k.pending)
	}
}

// BeginFrame latches pending presses and returns the frame's read-only view.
func (k *Keyboard) BeginFrame() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key := range k.pending {
		k.pressed[key] = true
	}
	clear(k.pending)
	return Snapshot{
		held:    maps.Clone(k.held),
		pressed: maps.Clone(k.pressed),
	}
}

// EndFrame clears the one-shot set. It runs even when the frame failed.
func (k *Keyboard) EndFrame() {
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.pressed)
}

// Snapshot is the keyboard state as seen by one frame.
type Snapshot struct {
	held    map[string]bool
	pressed map[string]bool
}

// IsDown reports whether key is currently held.
func (s Snapshot) IsDown(key string) bool {
	return s.held[key]
}

// WasPressed reports whether key went down since the previous frame.
func (s Snapshot) WasPressed(key string) bool {
	return s.pressed[key]
}
