package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
)

func TestFlowHandledLogHasOneEventKey(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := logger.L
	logger.L = logger.New(buf, config.LoggingConfig{Level: "info", Format: "text"})
	t.Cleanup(func() { logger.L = prev })

	h := newHarness(t, config.AuthModeChatID)
	h.send(t, alice, Button(BtnLogin))

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "event=flow.handled") {
			line = l
		}
	}
	require.NotEmpty(t, line, "log: %s", buf.String())
	assert.Equal(t, 1, strings.Count(line, " event="), line)
	assert.Contains(t, line, "event_name=login")
}
