package testkit

import (
	"sync"
	"testing"
)

var (
	seamsMu sync.Mutex
	seams   = map[any]*sync.Mutex{}
)

func seamLock(target any) *sync.Mutex {
	seamsMu.Lock()
	defer seamsMu.Unlock()
	mu, ok := seams[target]
	if !ok {
		mu = &sync.Mutex{}
		seams[target] = mu
	}
	return mu
}

// Swap replaces *target for the rest of the test. Tests swapping the same target
// are serialised against each other; the original is restored on cleanup.
// Swapping the same target twice within one test blocks forever.
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	mu := seamLock(target)
	mu.Lock()
	orig := *target
	*target = replacement
	t.Cleanup(func() {
		*target = orig
		mu.Unlock()
	})
}
