package bus_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillerworks/tiller/pkg/bus"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/store"
)

func newLog(t *testing.T) *bus.Log {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "tiller.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := bus.NewLog(db)
	require.NoError(t, err)
	return l
}

func TestPublish_AssignsIncreasingSeq(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	e1, err := l.Publish(ctx, contracts.EventArtifactFrozen, map[string]any{"path": "a.md"}, "t1")
	require.NoError(t, err)
	e2, err := l.Publish(ctx, contracts.EventGatePassed, map[string]any{"gate_id": "entry"}, "t2")
	require.NoError(t, err)

	assert.Greater(t, e2.Seq, e1.Seq)
}

func TestFetch_NewConsumerSeesEverything(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	_, err := l.Publish(ctx, contracts.EventArtifactFrozen, nil, "t1")
	require.NoError(t, err)
	_, err = l.Publish(ctx, contracts.EventGateFailed, map[string]any{"reason": "not committed"}, "t2")
	require.NoError(t, err)

	events, err := l.Fetch(ctx, "auditor", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, contracts.EventArtifactFrozen, events[0].Kind)
	assert.Equal(t, "not committed", events[1].Payload["reason"])
}

func TestCommit_ConsumerNeverReReceives(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	_, err := l.Publish(ctx, contracts.EventArtifactFrozen, nil, "t1")
	require.NoError(t, err)

	events, err := l.Fetch(ctx, "auditor", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, l.Commit(ctx, "auditor", events[0].Seq))

	events, err = l.Fetch(ctx, "auditor", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetch_IndependentConsumerOffsets(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	ev, err := l.Publish(ctx, contracts.EventGatePassed, nil, "t1")
	require.NoError(t, err)
	require.NoError(t, l.Commit(ctx, "auditor", ev.Seq))

	events, err := l.Fetch(ctx, "navigator", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "navigator has its own offset")
}

func TestCommit_OffsetsOnlyMoveForward(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	_, err := l.Publish(ctx, contracts.EventGatePassed, nil, "t1")
	require.NoError(t, err)
	ev2, err := l.Publish(ctx, contracts.EventGatePassed, nil, "t2")
	require.NoError(t, err)

	require.NoError(t, l.Commit(ctx, "auditor", ev2.Seq))
	assert.Error(t, l.Commit(ctx, "auditor", ev2.Seq-1))
}

func TestFetch_RespectsLimit(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Publish(ctx, contracts.EventGatePassed, nil, "t")
		require.NoError(t, err)
	}

	events, err := l.Fetch(ctx, "auditor", 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
