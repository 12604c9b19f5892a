package eventbus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNoSubscribers = errors.New("eventbus: no subscribers")

// Handler receives one event. A returned error is reported by PublishE.
type Handler[E any] func(E) error

type subscriber[E any] struct {
	id int
	fn Handler[E]
}

// Bus delivers events of one type to its subscribers in subscription order.
// A handler that panics is recovered and the remaining handlers still run.
type Bus[E any] struct {
	log logrus.FieldLogger

	mu     sync.RWMutex
	subs   []subscriber[E]
	nextID int
}

func New[E any](log logrus.FieldLogger) *Bus[E] {
	return &Bus[E]{log: log}
}

// Subscribe registers fn and returns a func that removes it again.
func (b *Bus[E]) Subscribe(fn Handler[E]) (unsubscribe func()) {
	if fn == nil {
		panic("eventbus: nil handler")
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[E]{id: id, fn: fn})
	b.mu.Unlock()

	return func() { b.remove(id) }
}

func (b *Bus[E]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus[E]) snapshot() []subscriber[E] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]subscriber[E](nil), b.subs...)
}

// PublishE delivers e to every subscriber and joins their errors.
func (b *Bus[E]) PublishE(e E) error {
	subs := b.snapshot()
	if len(subs) == 0 {
		if b.log != nil {
			b.log.WithField("event", fmt.Sprintf("%T", e)).Debug("eventbus.PublishE: no subscribers")
		}
		return ErrNoSubscribers
	}
	var errs []error
	for _, s := range subs {
		if err := call(s.fn, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func call[E any](fn Handler[E], e E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler for %T panicked: %v", e, r)
		}
	}()
	return fn(e)
}
