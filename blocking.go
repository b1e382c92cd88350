/*
file: redis-emulator/blocking.go

New relative to the teacher (no blocking commands exist there);
grounded on spec.md §4.6/§9's "coroutine-style blocking" design note: a
waiter registers a one-shot completion channel, mutators post to it,
and timeouts are driven by a deadline. This keeps every blocking
handler straight-line instead of needing continuations.
*/
package redisemu

import (
	"sync"
	"time"
)

// waiter is one suspended client's registration against a set of keys.
// predicate is re-evaluated by the mutator under the database lock
// before the waiter is woken, so a push that doesn't actually satisfy
// the blocked command (e.g. a different blocking type on the same
// key) leaves the waiter queued.
type waiter struct {
	conn      *Conn
	dbIndex   int
	keys      []string
	predicate func(db *Database, key string) bool
	done      chan struct{} // closed exactly once: by wake or by timeout
	woken     bool
	wokenKey  string
	mu        sync.Mutex
}

func (w *waiter) signal(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.woken {
		return false
	}
	w.woken = true
	w.wokenKey = key
	close(w.done)
	return true
}

// blockingCoordinator holds per-key FIFO queues of waiters, per
// spec.md §4.6.
type blockingCoordinator struct {
	mu      sync.Mutex
	waiters map[int]map[string][]*waiter // dbIndex -> key -> FIFO queue
}

func newBlockingCoordinator() *blockingCoordinator {
	return &blockingCoordinator{waiters: make(map[int]map[string][]*waiter)}
}

func (bc *blockingCoordinator) register(w *waiter) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.waiters[w.dbIndex] == nil {
		bc.waiters[w.dbIndex] = make(map[string][]*waiter)
	}
	for _, k := range w.keys {
		bc.waiters[w.dbIndex][k] = append(bc.waiters[w.dbIndex][k], w)
	}
}

func (bc *blockingCoordinator) unregister(w *waiter) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	m := bc.waiters[w.dbIndex]
	for _, k := range w.keys {
		m[k] = removeWaiter(m[k], w)
		if len(m[k]) == 0 {
			delete(m, k)
		}
	}
}

func removeWaiter(list []*waiter, w *waiter) []*waiter {
	out := list[:0]
	for _, v := range list {
		if v != w {
			out = append(out, v)
		}
	}
	return out
}

// notifyKey is called by a mutating handler (LPUSH, RPUSH, ZADD, XADD,
// ...) after it has applied its change and released the database lock
// to the point where the waiter's predicate can be safely re-checked.
// It wakes the first FIFO waiter on key whose predicate now holds.
func (bc *blockingCoordinator) notifyKey(db *Database, dbIndex int, key string) {
	bc.mu.Lock()
	queue := append([]*waiter(nil), bc.waiters[dbIndex][key]...)
	bc.mu.Unlock()

	for _, w := range queue {
		if w.predicate(db, key) {
			if w.signal(key) {
				return
			}
		}
	}
}

// blockWait suspends the calling goroutine until the waiter is
// signaled or timeout elapses (timeout == 0 means wait forever).
// Returns the key that satisfied the wait, or "" on timeout.
func blockWait(w *waiter, timeout time.Duration) string {
	if timeout <= 0 {
		<-w.done
		return w.wokenKey
	}
	select {
	case <-w.done:
		return w.wokenKey
	case <-time.After(timeout):
		w.mu.Lock()
		already := w.woken
		if !already {
			w.woken = true
			close(w.done)
		}
		w.mu.Unlock()
		if already {
			return w.wokenKey
		}
		return ""
	}
}
