package mq

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
)

var ErrClosed = errors.New("mq: backend closed")

// Local is an in-process backend. Every subscriber of a channel receives
// every message published after it subscribed, unless its buffer is full, in
// which case the message is dropped for that subscriber. A failing handler is
// retried up to localMaxAttempts times, then the message is dropped.
type Local struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	seq    int
	closed bool
	done   chan struct{}
}

const (
	localBuffer      = 64
	localMaxAttempts = 3
)

func NewLocal() *Local {
	return &Local{subs: make(map[string][]chan Message), done: make(chan struct{})}
}

func (l *Local) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return "", ErrClosed
	}
	l.seq++
	msg := Message{ID: strconv.Itoa(l.seq), Data: data, Attributes: attrs}
	subs := append([]chan Message(nil), l.subs[channel]...)
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "Dropping message for slow subscriber",
				slog.String("channel", channel), slog.String("id", msg.ID))
		}
	}
	return msg.ID, nil
}

// Subscribe blocks until ctx is cancelled or the backend is closed.
func (l *Local) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, localBuffer)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.subs[channel] = append(l.subs[channel], ch)
	l.mu.Unlock()

	defer l.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case msg := <-ch:
			for attempt := 0; attempt < localMaxAttempts; attempt++ {
				if err := handler(ctx, msg); err == nil {
					break
				}
			}
		}
	}
}

func (l *Local) unsubscribe(channel string, ch chan Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := l.subs[channel]
	for i, c := range subs {
		if c == ch {
			l.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}
