// Package callgroup shares one in-flight computation between concurrent
// callers asking for the same key.
//
// The first caller for a key runs the function; callers arriving while it is
// running wait for it and receive the same value and error. After it returns
// the key is forgotten, so a later call computes afresh.
package callgroup

import "sync"

// Result is the outcome of a shared call.
type Result[V any] struct {
	Val    V
	Err    error
	Shared bool // true if this caller joined a call started by another
}

// Group deduplicates concurrent calls by key.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// DoChan runs fn unless a call for key is already in flight, in which case
// the returned channel delivers that call's result. The channel receives
// exactly one value and is never closed.
func (g *Group[K, V]) DoChan(key K, fn func() (V, error)) <-chan Result[V] {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	c, inFlight := g.calls[key]
	if !inFlight {
		c = &call[V]{done: make(chan struct{})}
		g.calls[key] = c
	}
	g.mu.Unlock()

	if !inFlight {
		go func() {
			c.val, c.err = fn()

			g.mu.Lock()
			delete(g.calls, key)
			g.mu.Unlock()
			close(c.done)
		}()
	}

	ch := make(chan Result[V], 1)
	go func() {
		<-c.done
		ch <- Result[V]{Val: c.val, Err: c.err, Shared: inFlight}
	}()
	return ch
}

// Do is the blocking form of DoChan.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (V, error, bool) {
	r := <-g.DoChan(key, fn)
	return r.Val, r.Err, r.Shared
}

