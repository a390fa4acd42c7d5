package scene

import (
	"fmt"
	"sync"
)

// MemoryHost is an in-process Host that keeps objects in creation order.
type MemoryHost struct {
	mu      sync.Mutex
	next    int
	objects map[string]Object
	order   []string
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{objects: map[string]Object{}}
}

func (h *MemoryHost) Create(obj Object) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := fmt.Sprintf("obj_%d", h.next)
	h.objects[id] = obj
	h.order = append(h.order, id)
	return id, nil
}

func (h *MemoryHost) Destroy(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	delete(h.objects, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

func (h *MemoryHost) Get(id string) (Object, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.objects[id]
	return o, ok
}

// Objects lists live objects in creation order.
func (h *MemoryHost) Objects() []Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Object, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.objects[id])
	}
	return out
}

func (h *MemoryHost) Count(kind Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, o := range h.objects {
		if o.Kind == kind {
			n++
		}
	}
	return n
}
