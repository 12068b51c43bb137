package stream

import (
	"context"
	"sync"

	"backend-ofmen/internal/logging"
)

// Observe pushes a fresh snapshot from load immediately and again after every
// change notification on topic. The returned channel is closed once, when ctx
// ends or release is called; release may be called any number of times.
// Without a hub there are no notifications: one snapshot is sent and the
// channel is closed.
func Observe[T any](ctx context.Context, h *Hub, topic string, load func(context.Context) (T, error)) (<-chan T, func()) {
	ctx, cancel := context.WithCancel(ctx)
	log := logging.Discard()
	var client *Client
	if h != nil {
		log = h.log
		// Subscribe before the first load so a change racing it is not missed.
		client = h.Register(topic)
	}
	out := make(chan T, 1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			if client != nil {
				h.Unregister(client)
			}
		})
	}

	go func() {
		defer close(out)
		defer release()

		emit := func() bool {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.WithError(err).WithField("topic", topic).Warn("snapshot load failed")
				return true
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() || client == nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-client.Send:
				if !ok || !emit() {
					return
				}
			}
		}
	}()

	return out, release
}
