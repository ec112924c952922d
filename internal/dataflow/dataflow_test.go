package dataflow

import (
	"testing"

	"mec/internal/blob"
	"mec/internal/result"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConsumer records payloads and can be told to reject after n writes.
type recordingConsumer struct {
	items    []Payload
	rejectAt int
	closed   bool
}

func (r *recordingConsumer) CanAcceptData() bool { return !r.closed }
func (r *recordingConsumer) Write(p Payload) bool {
	if r.rejectAt > 0 && len(r.items) >= r.rejectAt {
		return false
	}
	r.items = append(r.items, p)
	return true
}
func (r *recordingConsumer) Close() error { r.closed = true; return nil }

func pipeOf(values ...string) *Pipe {
	p := NewPipe()
	for _, v := range values {
		p.Write(BlobPayload(blob.FromString(v)))
	}
	return p
}

func texts(items []Payload) []string {
	var out []string
	for _, p := range items {
		b, _ := p.Bytes()
		out = append(out, string(b))
	}
	return out
}

func TestOutlet_DirectionSafety(t *testing.T) {
	o := NewOutlet("out")
	consumer := &recordingConsumer{}
	require.NoError(t, o.PlugConsumer(consumer))

	assert.True(t, o.CanAcceptData())
	assert.True(t, o.Write(ResultPayload(result.String("x"))))

	// Producer-only operations on a consumer outlet fail without panicking.
	assert.False(t, o.HasData())
	p, ok := o.Read()
	assert.False(t, ok)
	assert.Equal(t, PayloadNone, p.Kind())
}

func TestOutlet_UnpluggedFails(t *testing.T) {
	o := NewOutlet("empty")
	assert.Equal(t, RoleNone, o.Role())
	assert.False(t, o.CanAcceptData())
	assert.False(t, o.Write(BlobPayload(blob.FromString("x"))))
	assert.False(t, o.HasData())
	_, ok := o.Read()
	assert.False(t, ok)
	assert.NoError(t, o.Close())
}

func TestOutlet_PlugRules(t *testing.T) {
	o := NewOutlet("slot")
	require.NoError(t, o.PlugProducer(pipeOf("a")))

	err := o.PlugConsumer(&recordingConsumer{})
	assert.ErrorIs(t, err, ErrAlreadyPlugged, "re-plugging without unplugging must fail")

	role, err := o.Unplug()
	require.NoError(t, err)
	assert.Equal(t, RoleProducer, role)

	_, err = o.Unplug()
	assert.ErrorIs(t, err, ErrNotPlugged)

	require.NoError(t, o.PlugProc(NewPipe()))
	assert.Equal(t, RoleProc, o.Role())
	assert.True(t, o.Write(BlobPayload(blob.FromString("both"))))
	assert.True(t, o.HasData())
	got, ok := o.Read()
	require.True(t, ok)
	assert.Equal(t, "both", got.AsResult().Text())
}

func TestOutlet_CloseClosesTransport(t *testing.T) {
	o := NewOutlet("c")
	consumer := &recordingConsumer{}
	require.NoError(t, o.PlugConsumer(consumer))
	require.NoError(t, o.Close())
	assert.True(t, consumer.closed)
	assert.Equal(t, RoleNone, o.Role())
}

func TestOutletSet(t *testing.T) {
	s := NewOutletSet()
	a := s.Ensure("a")
	assert.Same(t, a, s.Ensure("a"))

	assert.ErrorIs(t, s.Register(NewOutlet("a")), ErrOutletExists)
	require.NoError(t, s.Register(NewOutlet("b")))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	detached := s.Get("missing")
	assert.NotNil(t, detached)
	_, ok := s.Lookup("missing")
	assert.False(t, ok)

	require.NoError(t, a.PlugProc(NewPipe()))
	require.NoError(t, s.Remove("a"))
	assert.Equal(t, RoleNone, a.Role())
	assert.Equal(t, []string{"b"}, s.Names())

	require.NoError(t, s.CloseAll())
	assert.Empty(t, s.Names())
}

func TestOutletSet_NilAndZeroValue(t *testing.T) {
	var nilSet *OutletSet
	assert.ErrorIs(t, nilSet.Register(NewOutlet("a")), ErrNoOutletSet)
	assert.NotNil(t, nilSet.Ensure("a"))
	assert.NotNil(t, nilSet.Get("a"))
	_, ok := nilSet.Lookup("a")
	assert.False(t, ok)
	assert.NoError(t, nilSet.Remove("a"))
	assert.Empty(t, nilSet.Names())
	assert.NoError(t, nilSet.CloseAll())

	var zero OutletSet
	require.NoError(t, zero.Register(NewOutlet("a")))
	b := zero.Ensure("b")
	assert.Same(t, b, zero.Get("b"))
	assert.Equal(t, []string{"a", "b"}, zero.Names())
}

func TestFlowConsumer_DrainsWritersInOrder(t *testing.T) {
	reader := &recordingConsumer{}
	flow := NewFlowConsumer(reader)
	flow.AddWriter(pipeOf("a1", "a2", "a3"))
	flow.AddWriter(pipeOf("b1", "b2"))
	assert.Equal(t, 2, flow.Writers())

	n, ok := flow.FlowData()
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, texts(reader.items),
		"first writer must be drained completely before the second starts")
}

func TestFlowConsumer_StopsOnRejection(t *testing.T) {
	reader := &recordingConsumer{rejectAt: 2}
	flow := NewFlowConsumer(reader)
	flow.AddWriter(pipeOf("x", "y", "z"))

	n, ok := flow.FlowData()
	assert.False(t, ok)
	assert.Equal(t, 2, n)
}

func TestPipe_Close(t *testing.T) {
	p := pipeOf("kept")
	require.NoError(t, p.Close())
	assert.False(t, p.CanAcceptData())
	assert.False(t, p.Write(BlobPayload(blob.FromString("late"))))
	assert.True(t, p.HasData(), "buffered data survives close")
}

func TestPayload_Conversions(t *testing.T) {
	assert.Equal(t, result.String("hi"), BlobPayload(blob.FromString("hi")).AsResult())
	assert.Equal(t, result.Int(3), ResultPayload(result.Int(3)).AsResult())

	b, ok := ResultPayload(result.Int(3)).Bytes()
	assert.True(t, ok)
	assert.Equal(t, "3", string(b))

	_, ok = ResultPayload(result.Fatal()).Bytes()
	assert.False(t, ok)
	assert.Equal(t, "none", Payload{}.Kind().String())
}
