package accel

import (
	"sync"
)

// A command is one unit of device work: a transfer, a fill, or a
// kernel dispatch.
type command func() error

type queueItem struct {
	cmd     command
	barrier chan struct{}
}

// commandQueue executes commands in order on a dedicated goroutine.
// Enqueueing returns immediately; finish blocks until every command
// enqueued before it has completed.
type commandQueue struct {
	items chan queueItem
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func newCommandQueue(depth int) *commandQueue {
	q := &commandQueue{
		items: make(chan queueItem, depth),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *commandQueue) loop() {
	defer close(q.done)
	for item := range q.items {
		if item.barrier != nil {
			close(item.barrier)
			continue
		}
		q.mu.Lock()
		failed := q.err != nil
		q.mu.Unlock()
		// after a failure the remaining commands up to the next barrier
		// are skipped
		if failed {
			continue
		}
		if err := item.cmd(); err != nil {
			q.mu.Lock()
			q.err = err
			q.mu.Unlock()
		}
	}
}

func (q *commandQueue) enqueue(cmd command) {
	q.items <- queueItem{cmd: cmd}
}

// finish waits for all enqueued commands and returns the first error
// among them, clearing it for the next batch.
func (q *commandQueue) finish() error {
	barrier := make(chan struct{})
	q.items <- queueItem{barrier: barrier}
	<-barrier
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.err
	q.err = nil
	return err
}

func (q *commandQueue) release() {
	close(q.items)
	<-q.done
}
