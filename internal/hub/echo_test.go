package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoFilter_ConsumesOncePerPublish(t *testing.T) {
	pub := &fakePublisher{}
	f := NewEchoFilter(pub, time.Minute)
	payload := []byte(`{"temperature":21.5,"humidity":40}`)

	require.NoError(t, f.Publish("devices", payload))
	require.NoError(t, f.Publish("devices", payload))
	assert.Equal(t, 2, f.Pending())
	assert.Equal(t, 2, pub.count())

	assert.True(t, f.Consume(payload))
	assert.True(t, f.Consume(payload))
	assert.False(t, f.Consume(payload))
	assert.Zero(t, f.Pending())
}

func TestEchoFilter_UnknownPayload(t *testing.T) {
	f := NewEchoFilter(&fakePublisher{}, 0)
	assert.False(t, f.Consume([]byte(`{"component":"led"}`)))
}

func TestEchoFilter_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := NewEchoFilter(&fakePublisher{}, time.Second)
	f.now = func() time.Time { return now }

	require.NoError(t, f.Publish("devices", []byte("a")))
	now = now.Add(2 * time.Second)

	assert.False(t, f.Consume([]byte("a")))
	assert.Zero(t, f.Pending())
}

func TestEchoFilter_PruneOnPublish(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := NewEchoFilter(&fakePublisher{}, time.Second)
	f.now = func() time.Time { return now }

	require.NoError(t, f.Publish("devices", []byte("old")))
	now = now.Add(2 * time.Second)
	require.NoError(t, f.Publish("devices", []byte("new")))

	assert.Equal(t, 1, f.Pending())
}

func TestEchoFilter_FailedPublishForgotten(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	f := NewEchoFilter(pub, 0)

	err := f.Publish("devices", []byte("x"))
	assert.Error(t, err)
	assert.Zero(t, f.Pending())
	assert.False(t, f.Consume([]byte("x")))
}
