package services

import "sync"

// refreshResult is broadcast to every waiter when a refresh settles.
type refreshResult struct {
	err error
}

// refreshCoordinator guarantees a single in-flight session refresh.
//
// Check-then-set of the in-flight flag happens under mu, so two 401s can never
// both become the leader. Waiters are buffered channels kept in arrival order
// and released in that order when the leader settles.
type refreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
	generation uint64
	reported   uint64
}

// join either makes the caller the leader of a new refresh generation or
// enqueues it behind the one in flight.
func (rc *refreshCoordinator) join() (leader bool, gen uint64, wait <-chan refreshResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.refreshing {
		ch := make(chan refreshResult, 1)
		rc.waiters = append(rc.waiters, ch)
		return false, rc.generation, ch
	}

	rc.refreshing = true
	rc.generation++
	return true, rc.generation, nil
}

// settle flushes the queue with err (nil on success) and clears the in-flight flag.
func (rc *refreshCoordinator) settle(err error) {
	rc.mu.Lock()
	waiters := rc.waiters
	rc.waiters = nil
	rc.refreshing = false
	rc.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{err: err}
	}
}

// report returns true the first time an expiry is reported for generation gen.
func (rc *refreshCoordinator) report(gen uint64) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if gen <= rc.reported {
		return false
	}
	rc.reported = gen
	return true
}

func (rc *refreshCoordinator) pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.waiters)
}

func (rc *refreshCoordinator) inFlight() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.refreshing
}
