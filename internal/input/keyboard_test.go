package input

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyboard_OneShotLastsOneFrame(t *testing.T) {
	k := NewKeyboard()
	k.KeyDown("1")

	snap := k.BeginFrame()
	assert.True(t, snap.WasPressed("1"))
	assert.True(t, snap.IsDown("1"))
	k.EndFrame()

	snap = k.BeginFrame()
	assert.False(t, snap.WasPressed("1"), "press must not repeat on the next frame")
	assert.True(t, snap.IsDown("1"), "key is still held")
	k.EndFrame()

	k.KeyUp("1")
	snap = k.BeginFrame()
	assert.False(t, snap.IsDown("1"))
	k.EndFrame()
}

func TestKeyboard_PressAndReleaseBetweenFrames(t *testing.T) {
	k := NewKeyboard()
	k.KeyDown("ArrowRight")
	k.KeyUp("ArrowRight")

	snap := k.BeginFrame()
	assert.True(t, snap.WasPressed("ArrowRight"), "a tap between frames is still observed once")
	assert.False(t, snap.IsDown("ArrowRight"))
	k.EndFrame()
}

func TestKeyboard_MidFramePressDeferred(t *testing.T) {
	k := NewKeyboard()

	snap := k.BeginFrame()
	k.KeyDown("a")
	assert.False(t, snap.WasPressed("a"), "snapshot is immutable for the frame")
	k.EndFrame()

	snap = k.BeginFrame()
	assert.True(t, snap.WasPressed("a"))
	k.EndFrame()
}

func TestKeyboard_AutoRepeatIgnored(t *testing.T) {
	k := NewKeyboard()
	k.KeyDown("a")
	k.BeginFrame()
	k.EndFrame()

	k.KeyDown("a")
	snap := k.BeginFrame()
	assert.False(t, snap.WasPressed("a"))
	k.EndFrame()
}

func TestKeyboard_TextFocus(t *testing.T) {
	k := NewKeyboard()
	k.KeyDown("x")
	k.SetTextFocus(true)
	k.KeyDown("1")

	snap := k.BeginFrame()
	assert.False(t, snap.WasPressed("1"))
	assert.False(t, snap.WasPressed("x"))
	assert.False(t, snap.IsDown("x"))
	k.EndFrame()

	k.SetTextFocus(false)
	k.KeyDown("1")
	snap = k.BeginFrame()
	assert.True(t, snap.WasPressed("1"))
	k.EndFrame()
}

func TestKeyboard_Concurrent(t *testing.T) {
	k := NewKeyboard()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k.KeyDown("a")
				k.KeyUp("a")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		k.BeginFrame()
		k.EndFrame()
	}
	wg.Wait()

	snap := k.BeginFrame()
	assert.False(t, snap.IsDown("a"))
	k.EndFrame()
}
