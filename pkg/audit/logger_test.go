package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesOneJSONLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, "gatekeeper")

	err := l.Record(context.Background(), EventGate, "run", "gate_entry", map[string]any{
		"status": "passed",
	})
	require.NoError(t, err)
	err = l.Record(context.Background(), EventFreeze, "freeze", "wi_ship_it", nil)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "gatekeeper", first.ActorID)
	assert.Equal(t, EventGate, first.Type)
	assert.Equal(t, "run", first.Action)
	assert.Equal(t, "gate_entry", first.Resource)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, "passed", first.Metadata["status"])

	var second Event
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, second.Metadata)
}

func TestNopLoggerDiscards(t *testing.T) {
	var l Logger = Nop{}
	assert.NoError(t, l.Record(context.Background(), EventShaping, "ingest", "sess", nil))
}
