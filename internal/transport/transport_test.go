package transport

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/result"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target string
		want   Target
	}{
		{target: "/tmp/f", want: Target{Scheme: SchemeFile, Path: "/tmp/f"}},
		{target: "file:/tmp/f", want: Target{Scheme: SchemeFile, Path: "/tmp/f"}},
		{target: "mem:out", want: Target{Scheme: SchemeMem, Path: "out"}},
		{target: "queue:jobs", want: Target{Scheme: SchemeQueue, Path: "jobs"}},
		{target: "console:", want: Target{Scheme: SchemeConsole, Path: ""}},
		{target: "C:/data", want: Target{Scheme: SchemeFile, Path: "C:/data"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTarget(tt.target))
		})
	}
}

func drain(t *testing.T, p dataflow.Producer) string {
	t.Helper()
	var sb strings.Builder
	for p.HasData() {
		payload, ok := p.Read()
		require.True(t, ok)
		sb.WriteString(payload.AsResult().Text())
	}
	return sb.String()
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	reg := NewRegistry()

	c, err := reg.OpenConsumer(path, false)
	require.NoError(t, err)
	assert.True(t, c.CanAcceptData())
	assert.True(t, c.Write(dataflow.BlobPayload(blob.FromString("Hello"))))
	assert.True(t, c.Write(dataflow.ResultPayload(result.String("\n"))))
	assert.False(t, c.Write(dataflow.ObjectPayload(nil)), "objects have no byte form")
	require.NoError(t, c.Close())
	assert.False(t, c.CanAcceptData())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", string(data))

	p, err := reg.OpenProducer("file:" + path)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", drain(t, p))
	require.NoError(t, p.Close())
	assert.False(t, p.HasData())
}

func TestFileAppendAndTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	reg := NewRegistry()

	c, err := reg.OpenConsumer(path, true)
	require.NoError(t, err)
	c.Write(dataflow.BlobPayload(blob.FromString("new\n")))
	require.NoError(t, c.Close())

	data, _ := os.ReadFile(path)
	assert.Equal(t, "old\nnew\n", string(data))

	c, err = reg.OpenConsumer(path, false)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	data, _ = os.ReadFile(path)
	assert.Empty(t, data)
}

func TestFileProducerChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big")
	content := bytes.Repeat([]byte("x"), ChunkSize+10)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	p, err := OpenFileProducer(path)
	require.NoError(t, err)
	defer p.Close()

	first, ok := p.Read()
	require.True(t, ok)
	b, _ := first.Blob()
	assert.Equal(t, ChunkSize, b.Len())

	second, ok := p.Read()
	require.True(t, ok)
	b, _ = second.Blob()
	assert.Equal(t, 10, b.Len())

	assert.False(t, p.HasData())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := NewRegistry().OpenProducer(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestMemBuffers(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Exists("mem:buf"))

	c, err := reg.OpenConsumer("mem:buf", false)
	require.NoError(t, err)
	p, err := reg.OpenProducer("mem:buf")
	require.NoError(t, err)
	assert.False(t, p.HasData())

	c.Write(dataflow.ResultPayload(result.Int(42)))
	assert.Equal(t, "42", drain(t, p))

	c.Write(dataflow.BlobPayload(blob.FromString("!")))
	assert.Equal(t, "!", drain(t, p), "producers only see new data")

	got, ok := reg.Mem("buf")
	require.True(t, ok)
	assert.Equal(t, "42!", got)

	c2, err := reg.OpenConsumer("mem:buf", false)
	require.NoError(t, err)
	c2.Write(dataflow.BlobPayload(blob.FromString("reset")))
	got, _ = reg.Mem("buf")
	assert.Equal(t, "reset", got)
	assert.True(t, reg.Exists("mem:buf"))
}

func TestQueueFIFO(t *testing.T) {
	reg := NewRegistry(WithQueueDir(t.TempDir()))
	defer reg.Close()

	c, err := reg.OpenConsumer("queue:jobs", true)
	require.NoError(t, err)
	require.True(t, c.Write(dataflow.BlobPayload(blob.FromString("one"))))
	require.True(t, c.Write(dataflow.ResultPayload(result.Int(2))))
	require.True(t, c.Write(dataflow.ResultPayload(result.True)))
	assert.False(t, c.Write(dataflow.ResultPayload(result.Fatal())))

	p, err := reg.OpenProducer("queue:jobs")
	require.NoError(t, err)

	first, ok := p.Read()
	require.True(t, ok)
	b, ok := first.Blob()
	require.True(t, ok)
	assert.Equal(t, "one", b.String())

	second, ok := p.Read()
	require.True(t, ok)
	r, _ := second.Result()
	n, ok := r.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	third, ok := p.Read()
	require.True(t, ok)
	r, _ = third.Result()
	assert.True(t, r.Equal(result.True))

	assert.False(t, p.HasData())
	require.NoError(t, p.Close())
	require.NoError(t, c.Close())
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithQueueDir(dir))
	c, err := reg.OpenConsumer("queue:q", true)
	require.NoError(t, err)
	c.Write(dataflow.BlobPayload(blob.FromString("a")))
	c.Write(dataflow.BlobPayload(blob.FromString("b")))
	require.NoError(t, c.Close())
	assert.True(t, reg.Exists("queue:q"))

	reg = NewRegistry(WithQueueDir(dir))
	p, err := reg.OpenProducer("queue:q")
	require.NoError(t, err)
	assert.Equal(t, "ab", drain(t, p))
	require.NoError(t, p.Close())
	assert.False(t, reg.Exists("queue:q"), "drained queues are removed")
}

func TestQueueReopenAfterConsumingLastEntry(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithQueueDir(dir))
	c, err := reg.OpenConsumer("queue:q", true)
	require.NoError(t, err)
	p, err := reg.OpenProducer("queue:q")
	require.NoError(t, err)

	require.True(t, c.Write(dataflow.BlobPayload(blob.FromString("a"))))
	first, ok := p.Read()
	require.True(t, ok)
	b, _ := first.Blob()
	assert.Equal(t, "a", b.String())

	require.True(t, c.Write(dataflow.BlobPayload(blob.FromString("b"))))
	require.NoError(t, p.Close())
	require.NoError(t, c.Close())
	assert.True(t, reg.Exists("queue:q"))

	reg = NewRegistry(WithQueueDir(dir))
	p, err = reg.OpenProducer("queue:q")
	require.NoError(t, err)
	assert.Equal(t, "b", drain(t, p))
	require.NoError(t, p.Close())
}

func TestConsoleConsumer(t *testing.T) {
	var out bytes.Buffer
	reg := NewRegistry(WithConsole(nil, &out))

	c, err := reg.OpenConsumer("console:", false)
	require.NoError(t, err)
	assert.True(t, c.Write(dataflow.BlobPayload(blob.FromString("hi\n"))))
	require.NoError(t, c.Close())
	assert.False(t, c.Write(dataflow.BlobPayload(blob.FromString("late"))))
	assert.Equal(t, "hi\n", out.String())
}
