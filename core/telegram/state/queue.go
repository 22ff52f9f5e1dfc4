package state

import (
	"context"
	"sync"
)

// ChatQueue serializes work per chat: calls for the same chat run one at a time
// in arrival order, calls for different chats never wait on each other.
type ChatQueue struct {
	mu     sync.Mutex
	chains map[int64]chan struct{}
}

func NewChatQueue() *ChatQueue {
	return &ChatQueue{chains: map[int64]chan struct{}{}}
}

// Run waits for the previous call on chatID to finish, then runs fn.
func (q *ChatQueue) Run(ctx context.Context, chatID int64, fn func(context.Context) error) error {
	q.mu.Lock()
	previous := q.chains[chatID]
	next := make(chan struct{})
	q.chains[chatID] = next
	q.mu.Unlock()

	release := func() {
		close(next)
		q.mu.Lock()
		if q.chains[chatID] == next {
			delete(q.chains, chatID)
		}
		q.mu.Unlock()
	}

	if previous != nil {
		select {
		case <-previous:
		case <-ctx.Done():
			// Successors are chained on next; keep the order intact.
			go func() {
				<-previous
				release()
			}()
			return ctx.Err()
		}
	}

	defer release()
	return fn(ctx)
}

// Pending reports how many chats currently have queued or running work.
func (q *ChatQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chains)
}
