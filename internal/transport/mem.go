package transport

import (
	"sync"

	"mec/internal/blob"
	"mec/internal/dataflow"
)

// memBuffer is a named string buffer shared by every mem: producer and
// consumer opened through the same registry.
type memBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *memBuffer) snapshot(off int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off >= len(b.data) {
		return nil
	}
	return append([]byte(nil), b.data[off:]...)
}

type memConsumer struct {
	buf    *memBuffer
	closed bool
}

func (c *memConsumer) CanAcceptData() bool { return !c.closed }

func (c *memConsumer) Write(p dataflow.Payload) bool {
	if c.closed {
		return false
	}
	data, ok := p.Bytes()
	if !ok {
		return false
	}
	c.buf.mu.Lock()
	c.buf.data = append(c.buf.data, data...)
	c.buf.mu.Unlock()
	return true
}

func (c *memConsumer) Close() error {
	c.closed = true
	return nil
}

// memProducer reads everything written to the buffer since its last read.
type memProducer struct {
	buf    *memBuffer
	off    int
	closed bool
}

func (p *memProducer) HasData() bool {
	if p.closed {
		return false
	}
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	return p.off < len(p.buf.data)
}

func (p *memProducer) Read() (dataflow.Payload, bool) {
	if p.closed {
		return dataflow.Payload{}, false
	}
	data := p.buf.snapshot(p.off)
	if len(data) == 0 {
		return dataflow.Payload{}, false
	}
	p.off += len(data)
	return dataflow.BlobPayload(blob.New(blob.TypeText, data)), true
}

func (p *memProducer) Close() error {
	p.closed = true
	return nil
}
