package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingInvalidator struct {
	keys []string
	err  error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...string) error {
	r.keys = append(r.keys, keys...)
	return r.err
}

func TestInvalidationHandler(t *testing.T) {
	evt := EntityEvent{
		Entity:     EntityArtifact,
		Op:         OpUpdate,
		ID:         "a1",
		Invalidate: []string{"artifact:a1", "artifacts"},
		Origin:     "replica-b",
	}
	body, err := sonic.Marshal(evt)
	require.NoError(t, err)

	t.Run("remote event invalidates", func(t *testing.T) {
		inv := &recordingInvalidator{}
		h := InvalidationHandler("replica-a", inv, zap.NewNop())
		require.NoError(t, h(context.Background(), body))
		assert.Equal(t, []string{"artifact:a1", "artifacts"}, inv.keys)
	})

	t.Run("own event skipped", func(t *testing.T) {
		inv := &recordingInvalidator{}
		h := InvalidationHandler("replica-b", inv, zap.NewNop())
		require.NoError(t, h(context.Background(), body))
		assert.Empty(t, inv.keys)
	})

	t.Run("malformed body acked", func(t *testing.T) {
		inv := &recordingInvalidator{}
		h := InvalidationHandler("replica-a", inv, zap.NewNop())
		assert.NoError(t, h(context.Background(), []byte("{")))
		assert.Empty(t, inv.keys)
	})

	t.Run("cache failure is returned for requeue", func(t *testing.T) {
		inv := &recordingInvalidator{err: errors.New("redis down")}
		h := InvalidationHandler("replica-a", inv, zap.NewNop())
		assert.Error(t, h(context.Background(), body))
	})
}

func TestTableCarrier(t *testing.T) {
	c := tableCarrier{table: map[string]interface{}{"n": 3}}
	c.Set("traceparent", "00-abc")
	assert.Equal(t, "00-abc", c.Get("traceparent"))
	assert.Equal(t, "3", c.Get("n"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"n", "traceparent"}, c.Keys())
}

func TestNopPublisher(t *testing.T) {
	var p EventPublisher = NopPublisher{}
	assert.NoError(t, p.PublishEvent(context.Background(), EntityEvent{}))
}

type capturePublisher struct{ got []EntityEvent }

func (c *capturePublisher) PublishEvent(_ context.Context, evt EntityEvent) error {
	c.got = append(c.got, evt)
	return nil
}

func TestWithOrigin(t *testing.T) {
	inner := &capturePublisher{}
	p := WithOrigin(inner, "replica-a")
	require.NoError(t, p.PublishEvent(context.Background(), EntityEvent{Entity: EntityNote, Op: OpCreate}))
	require.Len(t, inner.got, 1)
	assert.Equal(t, "replica-a", inner.got[0].Origin)
}
