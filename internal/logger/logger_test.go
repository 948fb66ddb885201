package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetRequestIDReplacesPreviousID(t *testing.T) {
	savedBase, savedGlobal := base, log.Logger
	t.Cleanup(func() {
		base, log.Logger = savedBase, savedGlobal
	})

	var buf bytes.Buffer
	base = zerolog.New(&buf)

	SetRequestID("first")
	SetRequestID("second")
	testLog := WithComponent("test")
	testLog.Info().Msg("hello")

	line := buf.String()
	assert.Contains(t, line, `"request_id":"second"`)
	assert.NotContains(t, line, "first")
	assert.Equal(t, 1, strings.Count(line, "request_id"))
	assert.Contains(t, line, `"component":"test"`)
}

func TestWithRequestIDLeavesGlobalUntouched(t *testing.T) {
	savedBase, savedGlobal := base, log.Logger
	t.Cleanup(func() {
		base, log.Logger = savedBase, savedGlobal
	})

	var buf bytes.Buffer
	base = zerolog.New(&buf)
	log.Logger = base

	l := WithRequestID("abc")
	l.Info().Msg("tagged")
	log.Logger.Info().Msg("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], `"request_id":"abc"`)
		assert.NotContains(t, lines[1], "request_id")
	}
}
