package redisemu

import (
	"testing"
	"time"
)

func TestBlockingCoordinatorFIFOWakesFirstSatisfiedWaiter(t *testing.T) {
	bc := newBlockingCoordinator()
	db := newDatabase(0)

	var woke []string
	makeWaiter := func(name string) *waiter {
		w := &waiter{
			dbIndex: 0,
			keys:    []string{"k"},
			predicate: func(db *Database, key string) bool {
				return true
			},
			done: make(chan struct{}),
		}
		return w
	}

	w1 := makeWaiter("first")
	w2 := makeWaiter("second")
	bc.register(w1)
	bc.register(w2)

	bc.notifyKey(db, 0, "k")

	select {
	case <-w1.done:
		woke = append(woke, "first")
	default:
	}
	select {
	case <-w2.done:
		woke = append(woke, "second")
	default:
	}

	if len(woke) != 1 || woke[0] != "first" {
		t.Fatalf("expected only the first-registered waiter to wake, got %v", woke)
	}
}

func TestBlockingCoordinatorSkipsWaitersWhosePredicateFails(t *testing.T) {
	bc := newBlockingCoordinator()
	db := newDatabase(0)

	satisfied := false
	w1 := &waiter{
		dbIndex:   0,
		keys:      []string{"k"},
		predicate: func(db *Database, key string) bool { return satisfied },
		done:      make(chan struct{}),
	}
	w2 := &waiter{
		dbIndex:   0,
		keys:      []string{"k"},
		predicate: func(db *Database, key string) bool { return true },
		done:      make(chan struct{}),
	}
	bc.register(w1)
	bc.register(w2)

	bc.notifyKey(db, 0, "k")

	select {
	case <-w1.done:
		t.Fatal("w1's predicate was false; it should not have been woken")
	default:
	}
	select {
	case <-w2.done:
	default:
		t.Fatal("w2 should have been woken since its predicate holds")
	}
}

func TestBlockWaitTimeout(t *testing.T) {
	w := &waiter{done: make(chan struct{})}
	start := time.Now()
	key := blockWait(w, 100*time.Millisecond)
	if key != "" {
		t.Fatalf("expected an empty key on timeout, got %q", key)
	}
	if time.Since(start) < 80*time.Millisecond {
		t.Fatal("blockWait returned suspiciously early")
	}
}

func TestBlockWaitSignaled(t *testing.T) {
	w := &waiter{done: make(chan struct{})}
	go func() {
		time.Sleep(20 * time.Millisecond)
		w.signal("mykey")
	}()
	key := blockWait(w, 2*time.Second)
	if key != "mykey" {
		t.Fatalf("blockWait = %q, want %q", key, "mykey")
	}
}

func TestWaiterSignalOnlyOnce(t *testing.T) {
	w := &waiter{done: make(chan struct{})}
	if !w.signal("a") {
		t.Fatal("first signal should report true")
	}
	if w.signal("b") {
		t.Fatal("second signal should report false (already woken)")
	}
	if w.wokenKey != "a" {
		t.Fatalf("wokenKey = %q, want %q", w.wokenKey, "a")
	}
}
