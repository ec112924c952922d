package dataflow

import "sync"

// FlowConsumer is a consumer fed by registered writers. FlowData pulls from
// every writer in registration order, draining each one completely before the
// next starts, and hands every item to the reader delegate.
type FlowConsumer struct {
	reader Consumer

	mu      sync.Mutex
	writers []Producer
}

// NewFlowConsumer returns a flow consumer delivering into reader.
func NewFlowConsumer(reader Consumer) *FlowConsumer {
	if reader == nil {
		reader = dummy{}
	}
	return &FlowConsumer{reader: reader}
}

// AddWriter registers a producer to be drained by FlowData.
func (f *FlowConsumer) AddWriter(p Producer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writers = append(f.writers, p)
}

// Writers returns the number of registered writers.
func (f *FlowConsumer) Writers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writers)
}

// FlowData drains the writers into the reader. It returns the number of items
// delivered and false if the reader rejected an item, which stops the flow.
func (f *FlowConsumer) FlowData() (int, bool) {
	f.mu.Lock()
	writers := append([]Producer(nil), f.writers...)
	f.mu.Unlock()

	delivered := 0
	for _, w := range writers {
		for w.HasData() {
			p, ok := w.Read()
			if !ok {
				break
			}
			if !f.reader.Write(p) {
				return delivered, false
			}
			delivered++
		}
	}
	return delivered, true
}

// CanAcceptData implements Consumer by delegating to the reader.
func (f *FlowConsumer) CanAcceptData() bool { return f.reader.CanAcceptData() }

// Write implements Consumer by delegating to the reader.
func (f *FlowConsumer) Write(p Payload) bool { return f.reader.Write(p) }

// Close closes the reader.
func (f *FlowConsumer) Close() error { return f.reader.Close() }

// Pipe is an in-memory FIFO proc.
type Pipe struct {
	mu     sync.Mutex
	items  []Payload
	closed bool
}

// NewPipe returns an empty pipe.
func NewPipe() *Pipe { return &Pipe{} }

// CanAcceptData implements Consumer.
func (p *Pipe) CanAcceptData() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Write implements Consumer.
func (p *Pipe) Write(item Payload) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.items = append(p.items, item)
	return true
}

// HasData implements Producer.
func (p *Pipe) HasData() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items) > 0
}

// Read implements Producer. Buffered items stay readable after Close.
func (p *Pipe) Read() (Payload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return Payload{}, false
	}
	item := p.items[0]
	p.items = p.items[1:]
	return item, true
}

// Close stops accepting writes.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
