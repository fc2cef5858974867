// Package render is the boundary to the GPU backend. The animation core
// hands raw vertex/index bytes across it and keeps only opaque handles;
// it never issues draw calls itself.
package render

import (
	"log"
	"sync"
)

type BufferHandle uint32

const BufferHandleInvalid BufferHandle = 0

type Renderer interface {
	CreateVertexBuffer(data []byte) BufferHandle
	CreateIndexBuffer(data []byte) BufferHandle
	DestroyBuffer(h BufferHandle)
}

// MemoryRenderer keeps uploaded buffers in host memory. It backs the debug
// viewer (which has no GPU device) and the tests; a real backend implements
// Renderer on top of its own buffer objects.
type MemoryRenderer struct {
	mu      sync.Mutex
	next    BufferHandle
	buffers map[BufferHandle][]byte
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		next:    1,
		buffers: make(map[BufferHandle][]byte),
	}
}

func (r *MemoryRenderer) create(data []byte) BufferHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	buf := make([]byte, len(data))
	copy(buf, data)
	r.buffers[h] = buf
	return h
}

func (r *MemoryRenderer) CreateVertexBuffer(data []byte) BufferHandle {
	return r.create(data)
}

func (r *MemoryRenderer) CreateIndexBuffer(data []byte) BufferHandle {
	return r.create(data)
}

func (r *MemoryRenderer) DestroyBuffer(h BufferHandle) {
	if h == BufferHandleInvalid {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buffers[h]; !ok {
		log.Printf("[render] destroy of unknown buffer %v", h)
		return
	}
	delete(r.buffers, h)
}

// LiveBuffers reports how many buffers have been created and not destroyed.
func (r *MemoryRenderer) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}
