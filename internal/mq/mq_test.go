package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLocalPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New(NewLocal())
	defer q.Close()

	received := make(chan payload, 16)
	subscribed := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		close(subscribed)
		errc <- q.Subscribe(ctx, "intake.recorded", func(ctx context.Context, msg Message) error {
			var p payload
			if err := msg.Decode(&p); err != nil {
				return err
			}
			received <- p
			return nil
		})
	}()
	<-subscribed

	// Subscription registration races with the first publish; retry until
	// the subscriber sees it.
	require.Eventually(t, func() bool {
		if _, err := q.PublishJSON(ctx, "intake.recorded", payload{Name: "Aspirin", Count: 2}); err != nil {
			return false
		}
		select {
		case p := <-received:
			assert.Equal(t, payload{Name: "Aspirin", Count: 2}, p)
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestLocalRetriesFailingHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewLocal()
	defer local.Close()

	attempts := make(chan int, 32)
	n := 0
	go local.Subscribe(ctx, "c", func(ctx context.Context, msg Message) error {
		n++
		attempts <- n
		return errors.New("boom")
	})

	require.Eventually(t, func() bool {
		if _, err := local.Publish(ctx, "c", []byte("x"), nil); err != nil {
			return false
		}
		select {
		case <-attempts:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, time.Second, 10*time.Millisecond)

	for i := 1; i < localMaxAttempts; i++ {
		select {
		case <-attempts:
		case <-time.After(time.Second):
			t.Fatalf("expected %d attempts", localMaxAttempts)
		}
	}
}

func TestLocalPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewLocal()
	defer local.Close()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	go local.Subscribe(ctx, "c", func(ctx context.Context, msg Message) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	defer close(release)

	require.Eventually(t, func() bool {
		if _, err := local.Publish(ctx, "c", nil, nil); err != nil {
			return false
		}
		select {
		case <-started:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*localBuffer; i++ {
			_, _ = local.Publish(ctx, "c", nil, nil)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}

func TestLocalClosed(t *testing.T) {
	local := NewLocal()
	require.NoError(t, local.Close())
	require.NoError(t, local.Close())

	_, err := local.Publish(context.Background(), "c", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, local.Subscribe(context.Background(), "c", nil), ErrClosed)
}

func TestOpenDisabled(t *testing.T) {
	q, err := Open(context.Background(), config.Config{MQBackend: config.MQNone})
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = Open(context.Background(), config.Config{MQBackend: "kafka"})
	assert.Error(t, err)
}

func TestOpenLocal(t *testing.T) {
	q, err := Open(context.Background(), config.Config{MQBackend: config.MQLocal})
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NoError(t, q.Close())

	_, err = q.Publish(context.Background(), "c", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeError(t *testing.T) {
	var p payload
	err := Message{ID: "7", Data: []byte("{")}.Decode(&p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message 7")
}
