package transport

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/pkg/logging"
)

// consoleConsumer writes payload text to the console output.
type consoleConsumer struct {
	out    io.Writer
	closed bool
}

func (c *consoleConsumer) CanAcceptData() bool { return !c.closed && c.out != nil }

func (c *consoleConsumer) Write(p dataflow.Payload) bool {
	if !c.CanAcceptData() {
		return false
	}
	data, ok := p.Bytes()
	if !ok {
		return false
	}
	_, err := c.out.Write(data)
	return err == nil
}

func (c *consoleConsumer) Close() error {
	c.closed = true
	return nil
}

// consoleProducer reads lines interactively. Each Read returns one line
// including its newline.
type consoleProducer struct {
	rl      *readline.Instance
	pending *string
	eof     bool
}

func newConsoleProducer(prompt string, in io.ReadCloser, out io.Writer) (*consoleProducer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &consoleProducer{rl: rl}, nil
}

func (p *consoleProducer) fill() {
	if p.pending != nil || p.eof {
		return
	}
	line, err := p.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
		p.eof = true
	case err != nil:
		logging.Error("Transport", err, "Console read failed")
		p.eof = true
	default:
		line = strings.TrimRight(line, "\r\n") + "\n"
		p.pending = &line
	}
}

func (p *consoleProducer) HasData() bool {
	p.fill()
	return p.pending != nil
}

func (p *consoleProducer) Read() (dataflow.Payload, bool) {
	p.fill()
	if p.pending == nil {
		return dataflow.Payload{}, false
	}
	line := *p.pending
	p.pending = nil
	return dataflow.BlobPayload(blob.FromString(line)), true
}

func (p *consoleProducer) Close() error {
	p.eof = true
	return p.rl.Close()
}
