package rpc

import (
	"context"
	"encoding/json"
	"sync"
)

// Subscription receives server-push notifications for one subscription id.
type Subscription struct {
	client      *Client
	id          string
	unsubscribe string

	mu     sync.Mutex
	queue  []json.RawMessage
	notify chan struct{}
	out    chan json.RawMessage

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	err      error
}

func newSubscription(c *Client, unsubscribeMethod string) *Subscription {
	return &Subscription{
		client:      c,
		unsubscribe: unsubscribeMethod,
		notify:      make(chan struct{}, 1),
		out:         make(chan json.RawMessage),
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
	}
}

// ID is the server-assigned subscription id.
func (s *Subscription) ID() string {
	return s.id
}

// Notifications yields each notification payload in arrival order. The channel
// is closed once the subscription ends.
func (s *Subscription) Notifications() <-chan json.RawMessage {
	return s.out
}

// Err is the reason the subscription ended; nil after a clean Unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe stops delivery and tells the server to drop the subscription.
func (s *Subscription) Unsubscribe() error {
	stopped := s.terminate(nil)
	s.client.removeSubscription(s.id)
	<-s.exited
	if !stopped {
		return nil
	}

	select {
	case <-s.client.Done():
		return nil
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	var ok bool
	return s.client.Call(ctx, &ok, s.unsubscribe, s.id)
}

// terminate ends delivery and reports whether this call performed the stop.
func (s *Subscription) terminate(err error) bool {
	stopped := false
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		stopped = true
	})
	return stopped
}

func (s *Subscription) deliver(payload json.RawMessage) {
	s.mu.Lock()
	s.queue = append(s.queue, payload)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// forward drains the queue into out so the read loop never blocks on a slow consumer.
func (s *Subscription) forward() {
	defer s.client.wg.Done()
	defer close(s.exited)
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			select {
			case s.out <- next:
			case <-s.done:
				return
			}
			continue
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
			return
		}
	}
}
