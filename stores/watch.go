// watch.go
// Shared watcher machinery. Every store embeds watchers and calls notify()
// after republishing state; the view layer registers callbacks through
// Watch to drive its re-renders.

package stores

import "sync"

type watchers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

// Watch registers a callback fired after every state republish. The
// returned function removes it. Callbacks run outside any store lock, so
// they may call back into selectors freely.
func (w *watchers) Watch(fn func()) func() {
	w.mu.Lock()
	if w.fns == nil {
		w.fns = map[int]func(){}
	}
	id := w.next
	w.next++
	w.fns[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.fns, id)
		w.mu.Unlock()
	}
}

func (w *watchers) notify() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
