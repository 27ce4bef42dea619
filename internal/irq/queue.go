package irq

import (
	"sync"

	"github.com/vcore16/vcore16/internal/log"
)

// QueueSize is the capacity of the interrupt queue. One slot is reserved to
// distinguish full from empty, as with the UART rings.
const QueueSize = 33

// Queue is a bounded, thread-safe FIFO of pending interrupt sources. It is
// the one piece of state shared between the CPU thread and the UART thread.
type Queue struct {
	mut      sync.Mutex
	nonEmpty *sync.Cond

	buf        [QueueSize]uint8
	head, tail int
	count      int

	log *log.Logger
}

// NewQueue creates an empty interrupt queue.
func NewQueue() *Queue {
	q := &Queue{log: log.DefaultLogger()}
	q.nonEmpty = sync.NewCond(&q.mut)

	return q
}

// Enqueue appends source to the queue. It never blocks: if the queue is
// full, it drops the interrupt, logs, and returns false.
func (q *Queue) Enqueue(source uint8) bool {
	q.mut.Lock()
	defer q.mut.Unlock()

	if q.count == QueueSize-1 {
		q.log.Warn("interrupt queue full, dropping IRQ", "source", source)
		return false
	}

	q.buf[q.tail] = source
	q.tail = (q.tail + 1) % QueueSize
	q.count++

	q.nonEmpty.Signal()

	return true
}

// Dequeue removes and returns the oldest pending source. It never blocks:
// it returns false if the queue is empty.
func (q *Queue) Dequeue() (uint8, bool) {
	q.mut.Lock()
	defer q.mut.Unlock()

	if q.count == 0 {
		return 0, false
	}

	source := q.buf[q.head]
	q.head = (q.head + 1) % QueueSize
	q.count--

	return source, true
}

// DequeueWait blocks until a source is available or ctx-like cancellation is
// not applicable (the queue has no context of its own); callers that need
// cancellation should poll Dequeue. DequeueWait exists for consumers that
// prefer to block rather than poll, per the optional blocking variant in the
// design notes.
func (q *Queue) DequeueWait() uint8 {
	q.mut.Lock()
	defer q.mut.Unlock()

	for q.count == 0 {
		q.nonEmpty.Wait()
	}

	source := q.buf[q.head]
	q.head = (q.head + 1) % QueueSize
	q.count--

	return source
}

// Len returns the number of pending sources.
func (q *Queue) Len() int {
	q.mut.Lock()
	defer q.mut.Unlock()

	return q.count
}
