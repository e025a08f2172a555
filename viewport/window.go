package viewport

import "sync"

// Window is the surface a controller renders for. Size is in frame pixels.
type Window interface {
	Size() (width, height int)
	// AddResizeListener registers fn and returns a function that removes it.
	// The remover is safe to call more than once.
	AddResizeListener(fn func(width, height int)) (remove func())
}

// EventWindow is an in-process Window whose size changes are pushed by its
// owner, such as the desktop layout hook or a headless command.
type EventWindow struct {
	mu        sync.Mutex
	width     int
	height    int
	nextID    int
	listeners map[int]func(int, int)
}

func NewEventWindow(width, height int) *EventWindow {
	return &EventWindow{
		width:     width,
		height:    height,
		listeners: make(map[int]func(int, int)),
	}
}

func (w *EventWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *EventWindow) AddResizeListener(fn func(int, int)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// ListenerCount returns the number of registered resize listeners.
func (w *EventWindow) ListenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// Resize records the new size and notifies listeners when it changed.
// Listeners run on the caller's goroutine, outside the window lock.
func (w *EventWindow) Resize(width, height int) {
	w.mu.Lock()
	if width == w.width && height == w.height {
		w.mu.Unlock()
		return
	}
	w.width, w.height = width, height
	fns := make([]func(int, int), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(width, height)
	}
}
