package hikcam

import (
	"sync"

	"github.com/nasa-jpl/hikcam/mvs"
)

// Guard reference counts initialization of an SDK.  The SDK is initialized
// when the first reference is taken and finalized when the last one is
// dropped.  One Guard should exist per Library; it is safe for concurrent
// use.
type Guard struct {
	mu   sync.Mutex
	lib  mvs.Library
	refs int
}

// NewGuard returns a guard for lib with no references
func NewGuard(lib mvs.Library) *Guard {
	return &Guard{lib: lib}
}

// Library is the guarded SDK
func (g *Guard) Library() mvs.Library {
	return g.lib
}

// Acquire takes a reference, initializing the SDK if this is the first.
// If initialization fails no reference is taken.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs == 0 {
		if err := g.lib.Initialize(); err != nil {
			return err
		}
	}
	g.refs++
	return nil
}

// Release drops a reference, finalizing the SDK if it was the last.
// Releasing with no references held does nothing.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs == 0 {
		return nil
	}
	g.refs--
	if g.refs == 0 {
		return g.lib.Finalize()
	}
	return nil
}

// Count is the number of references held
func (g *Guard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs
}
