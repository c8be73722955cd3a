package populate

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans finished task results out to subscribers. It is an
// Observer; pass b.Observe to WithObserver.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Result
	nextID uint64
	buf    int

	dropped uint64
}

func NewBroadcaster(buf int) *Broadcaster {
	if buf <= 0 {
		buf = 16
	}
	return &Broadcaster{subs: map[uint64]chan Result{}, buf: buf}
}

// Subscribe returns a channel of results and a cancel func that closes it.
func (b *Broadcaster) Subscribe() (<-chan Result, func()) {
	ch := make(chan Result, b.buf)
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) Observe(res Result) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- res:
		default:
			// Slow subscriber; the worker must not block.
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}
