package transport

import "sync"

// bufferPool recycles receive buffers across frames and workers.
type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

func (bp *bufferPool) get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

func (bp *bufferPool) put(buf *[]byte) {
	if buf == nil || cap(*buf) != bp.size {
		return
	}
	*buf = (*buf)[:bp.size]
	bp.pool.Put(buf)
}

var receiveBuffers = newBufferPool(DefaultBufferSize)
