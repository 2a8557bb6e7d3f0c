package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", true).With("component", "sync")

	l.Info("hidden %d", 1)
	l.Warn("pulled %d workflows", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 1)
	assert.Equal(t, "warn", gjson.GetBytes(lines[0], "level").String())
	assert.Equal(t, "pulled 3 workflows", gjson.GetBytes(lines[0], "message").String())
	assert.Equal(t, "sync", gjson.GetBytes(lines[0], "component").String())
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud", true)
	l.Debug("no")
	l.Info("yes")
	assert.Equal(t, "yes", gjson.GetBytes(bytes.TrimSpace(buf.Bytes()), "message").String())
}
