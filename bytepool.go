package main

import "sync"

// bufferPool hands out reusable byte slices for encoding replies, so
// steady-state traffic doesn't allocate a fresh buffer per response.
type bufferPool struct {
	pool sync.Pool
}

func newBufferPool(initialCap int) *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, 0, initialCap)
			},
		},
	}
}

func (p *bufferPool) get() []byte {
	return p.pool.Get().([]byte)[:0]
}

func (p *bufferPool) put(buf []byte) {
	p.pool.Put(buf)
}
