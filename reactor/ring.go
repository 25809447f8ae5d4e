package reactor

import (
	"runtime"
	"sync/atomic"

	"github.com/lattice-trade/orderbook/book"
)

// AuditSink receives BookLog copies off the ring, on the consumer
// goroutine, fully decoupled from the reactor thread.
type AuditSink interface {
	OnBookLog(log *book.BookLog)
}

// LogRing is an asynchronous fan-out of BookLog events from the reactor
// thread to a background consumer, a single-producer/single-consumer ring
// buffer. Only the reactor thread ever calls Publish, so the producer side
// needs no CAS retry loop — a single sequence increment suffices, unlike
// a ring buffer that must tolerate concurrent producers.
type LogRing struct {
	buffer     []*book.BookLog
	bufferMask int64
	published  []int64

	producerSequence atomic.Int64
	consumerSequence atomic.Int64

	sink AuditSink

	isShutdown atomic.Bool
	done       chan struct{}
}

// NewLogRing creates a ring of capacity slots (must be a power of two)
// feeding sink on a dedicated consumer goroutine started by Start.
func NewLogRing(capacity int64, sink AuditSink) *LogRing {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("reactor: ring capacity must be a power of 2")
	}
	r := &LogRing{
		buffer:     make([]*book.BookLog, capacity),
		bufferMask: capacity - 1,
		published:  make([]int64, capacity),
		sink:       sink,
		done:       make(chan struct{}),
	}
	r.producerSequence.Store(-1)
	r.consumerSequence.Store(-1)
	for i := range r.published {
		r.published[i] = -1
	}
	return r
}

// Publish hands log to the ring. Must only be called from the reactor
// thread. Blocks (yielding the goroutine) if the consumer has fallen a
// full capacity behind.
func (r *LogRing) Publish(log *book.BookLog) {
	if r.isShutdown.Load() {
		return
	}

	next := r.producerSequence.Load() + 1
	capacity := r.bufferMask + 1
	for next-capacity > r.consumerSequence.Load() {
		runtime.Gosched()
	}

	index := next & r.bufferMask
	r.buffer[index] = log
	atomic.StoreInt64(&r.published[index], next)
	r.producerSequence.Store(next)
}

// Start launches the consumer goroutine.
func (r *LogRing) Start() {
	go r.consumeLoop()
}

// Shutdown stops accepting new entries and blocks until the consumer has
// drained everything already published.
func (r *LogRing) Shutdown() {
	r.isShutdown.Store(true)
	<-r.done
}

func (r *LogRing) consumeLoop() {
	next := r.consumerSequence.Load() + 1

	for {
		available := r.producerSequence.Load()
		for next <= available {
			index := next & r.bufferMask
			for atomic.LoadInt64(&r.published[index]) != next {
				runtime.Gosched()
			}
			r.sink.OnBookLog(r.buffer[index])
			r.consumerSequence.Store(next)
			next++
		}

		if r.isShutdown.Load() && next > r.producerSequence.Load() {
			close(r.done)
			return
		}
		runtime.Gosched()
	}
}
