// Package queue provides the FIFO used to hand decoded harness messages to
// the operator log.
package queue

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/SethEden/Hay-CAF/types"
)

// MessageQueue is an unbounded FIFO of messages.
type MessageQueue struct {
	mu    sync.Mutex
	items *linkedlistqueue.Queue
}

func New() *MessageQueue {
	return &MessageQueue{items: linkedlistqueue.New()}
}

// Enqueue appends items in order.
func (q *MessageQueue) Enqueue(items ...types.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		q.items.Enqueue(item)
	}
}

// Dequeue removes and returns the oldest message. ok is false when the
// queue is empty.
func (q *MessageQueue) Dequeue() (msg types.Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.items.Dequeue()
	if !ok {
		return types.Message{}, false
	}
	return v.(types.Message), true
}

func (q *MessageQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Empty()
}

func (q *MessageQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Clear drops every queued message.
func (q *MessageQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.Clear()
}
