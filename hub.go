package greeter

import (
	"sync"
)

var _ Publisher = (*Hub)(nil)

// HubObserver is notified of subscription changes and publishes, e.g. to
// export metrics. Calls happen while the hub lock is held.
type HubObserver interface {
	Subscribed(key string)
	Unsubscribed(key string)
	Published(key string, session Session, delivered int)
}

type nopObserver struct{}

func (nopObserver) Subscribed(string) {}
func (nopObserver) Unsubscribed(string) {}
func (nopObserver) Published(string, Session, int) {}

// Hub fans out session changes to subscribers grouped by browser key
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	closed   bool
	logger   Logger
	observer HubObserver
}

// Subscription receives the sessions published for a single key
type Subscription struct {
	hub  *Hub
	key  string
	ch   chan Session
	once sync.Once
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		logger:   DefaultLogger,
		observer: nopObserver{},
	}
}

func (h *Hub) WithLogger(logger Logger) *Hub {
	h.logger = logger
	return h
}

// WithObserver sets the observer, nil restores the no-op one
func (h *Hub) WithObserver(observer HubObserver) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()

	if observer == nil {
		observer = nopObserver{}
	}
	h.observer = observer
	return h
}

// Subscribe registers a new subscription for key. Subscribing to a closed
// Hub returns a subscription whose channel is already closed.
func (h *Hub) Subscribe(key string) *Subscription {
	sub := &Subscription{
		hub: h,
		key: key,
		ch:  make(chan Session, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}

	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	h.observer.Subscribed(key)

	h.logger.Debug("hub subscribe key=%s subscribers=%d", key, len(set))

	return sub
}

// Publish delivers session to every subscriber of key. A subscriber that
// has not consumed its previous value gets it replaced.
func (h *Hub) Publish(key string, session Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	set := h.subs[key]
	for sub := range set {
		// drop the stale value, we hold the lock so no other publisher
		// can refill the buffer between drain and send
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- session
	}
	h.observer.Published(key, session, len(set))

	h.logger.Debug("hub publish key=%s %s subscribers=%d", key, session, len(set))
}

// Subscribers returns the number of live subscriptions for key
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Close closes every subscription and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for key, set := range h.subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
			h.observer.Unsubscribed(key)
		}
		delete(h.subs, key)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.key]
	if !ok {
		return
	}

	if _, ok := set[sub]; !ok {
		return
	}

	delete(set, sub)
	h.observer.Unsubscribed(sub.key)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
}

// Key returns the browser key this subscription listens to
func (s *Subscription) Key() string {
	return s.key
}

// C returns the channel sessions are delivered on. It is closed by Close
// or when the Hub closes.
func (s *Subscription) C() <-chan Session {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.once.Do(func() { close(s.ch) })
}
