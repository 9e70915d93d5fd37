package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithFormat(&buf, slog.LevelInfo, "json").Error("boom", "error", errors.New("x"))
	assert.Contains(t, buf.String(), `"err":"x"`)

	buf.Reset()
	l := NewWithFormat(&buf, slog.LevelWarn, "text")
	l.Info("hidden")
	l.Warn("shown", "error", "y")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "err=y")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, termenv.WithProfile(termenv.Ascii))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	sink.Log(domain.LogEntry{Time: at, Level: domain.LogError, NodeID: "n", Message: "Runtime Error n: boom"})
	sink.Log(domain.LogEntry{Time: at, Level: domain.LogInfo, Message: "hello"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "03:04:05 [n] Runtime Error n: boom", lines[0])
	assert.Equal(t, "03:04:05 hello", lines[1])
}
