package transport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/pkg/logging"
)

// ChunkSize is the largest blob a file producer returns per Read.
const ChunkSize = 64 * 1024

// FileConsumer writes payload bytes to a file.
type FileConsumer struct {
	path string
	f    *os.File
}

// OpenFileConsumer creates or truncates path, or appends to it when
// appendMode is set.
func OpenFileConsumer(path string, appendMode bool) (*FileConsumer, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	return &FileConsumer{path: path, f: f}, nil
}

func (c *FileConsumer) CanAcceptData() bool { return c.f != nil }

func (c *FileConsumer) Write(p dataflow.Payload) bool {
	if c.f == nil {
		return false
	}
	data, ok := p.Bytes()
	if !ok {
		logging.Warn("Transport", "Cannot write %s payload to %s", p.Kind(), c.path)
		return false
	}
	if _, err := c.f.Write(data); err != nil {
		logging.Error("Transport", err, "Failed to write to %s", c.path)
		return false
	}
	return true
}

func (c *FileConsumer) Close() error {
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

// FileProducer reads a file in chunks of at most ChunkSize bytes.
type FileProducer struct {
	path    string
	f       *os.File
	pending []byte
	eof     bool
}

// OpenFileProducer opens path for reading.
func OpenFileProducer(path string) (*FileProducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for reading: %w", path, err)
	}
	return &FileProducer{path: path, f: f}, nil
}

func (p *FileProducer) fill() {
	if len(p.pending) > 0 || p.eof || p.f == nil {
		return
	}
	buf := make([]byte, ChunkSize)
	n, err := p.f.Read(buf)
	p.pending = buf[:n]
	if err != nil {
		if !errors.Is(err, io.EOF) {
			logging.Error("Transport", err, "Failed to read %s", p.path)
		}
		p.eof = true
	}
}

func (p *FileProducer) HasData() bool {
	p.fill()
	return len(p.pending) > 0
}

func (p *FileProducer) Read() (dataflow.Payload, bool) {
	p.fill()
	if len(p.pending) == 0 {
		return dataflow.Payload{}, false
	}
	data := p.pending
	p.pending = nil
	return dataflow.BlobPayload(blob.New(blob.TypeText, data)), true
}

func (p *FileProducer) Close() error {
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	p.eof = true
	return err
}
