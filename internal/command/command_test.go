package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/factory"
	"mec/internal/result"
	"mec/internal/tobject"
	"mec/internal/transport"
)

func newContext(t *testing.T) (*tobject.RunContext, *bytes.Buffer, *transport.Registry) {
	t.Helper()
	var out bytes.Buffer
	reg := transport.NewRegistry(transport.WithConsole(nil, &out), transport.WithQueueDir(t.TempDir()))
	t.Cleanup(func() { reg.Close() })
	ctx := tobject.NewRunContext(tobject.WithOutput(&out), tobject.WithTransports(reg))
	return ctx, &out, reg
}

func newRegistry() *factory.Registry {
	r := factory.NewRegistry()
	r.Register(NewBuiltin())
	return r
}

func TestLog(t *testing.T) {
	ctx, out, _ := newContext(t)
	ctx.SetEnv("WHO", "world")

	r := NewLog("hello", "{{ .WHO }}").Run(ctx)
	assert.True(t, r.Equal(result.True))
	assert.Equal(t, "hello world\n", out.String())

	r = NewLog("{{ .MISSING }}").Run(ctx)
	assert.True(t, r.IsFatal())
}

func TestLiteralBraces(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		fatal   bool
	}{
		{name: "unknown template variable", payload: "{{ .WHO }}", fatal: true},
		{name: "raw prefix", payload: "raw:{{name}} says {{ .WHO }}", want: "{{name}} says {{ .WHO }}\n"},
		{name: "escaped braces", payload: `{{"{{"}}name}}`, want: "{{name}}\n"},
		{name: "raw prefix only", payload: "raw:", want: "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out, _ := newContext(t)
			r := NewLog(tt.payload).Process(ctx)
			if tt.fatal {
				assert.True(t, r.IsFatal())
				return
			}
			assert.True(t, r.Truthy())
			assert.Equal(t, tt.want, out.String())
		})
	}

	t.Run("write keeps raw payload", func(t *testing.T) {
		ctx, _, reg := newContext(t)
		require.True(t, NewCons(VerbOpenWrite, "mem:tpl", "tpl").Process(ctx).Truthy())
		require.True(t, NewCons(VerbWrite, "tpl", `raw:{"a": "{{x}}"}`).Process(ctx).Truthy())
		assert.True(t, NewCons(VerbWrite, "tpl", `{"a": "{{x}}"}`).Process(ctx).IsFatal())
		got, _ := reg.Mem("tpl")
		assert.Equal(t, `{"a": "{{x}}"}`, got)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestOutputWriteErrors(t *testing.T) {
	ctx := tobject.NewRunContext(tobject.WithOutput(failingWriter{}))
	assert.True(t, NewLog("x").Process(ctx).Equal(result.False))
	assert.True(t, NewPass("x").Process(ctx).Equal(result.True))
	assert.True(t, NewFail("x").Process(ctx).Equal(result.False))
}

func TestWriteAndReadFile(t *testing.T) {
	ctx, _, _ := newContext(t)
	path := filepath.Join(t.TempDir(), "f")

	steps := []struct {
		cmd  tobject.TObject
		want result.Result
	}{
		{cmd: NewCons(VerbOpenWrite, path), want: result.True},
		{cmd: NewCons(VerbOpenWrite, path), want: result.False},
		{cmd: NewCons(VerbWrite, path, "Hello"), want: result.True},
		{cmd: NewCons(VerbWriteLine, path, "", "world"), want: result.True},
		{cmd: NewProd(VerbRead, path), want: result.False},
		{cmd: NewCons(VerbClose, path), want: result.True},
		{cmd: NewCons(VerbClose, path), want: result.False},
		{cmd: NewProd(VerbOpen, path, "in"), want: result.True},
		{cmd: NewCons(VerbWrite, "in", "x"), want: result.False},
		{cmd: NewProd(VerbRead, "in"), want: result.String("Hello world\n")},
		{cmd: NewProd(VerbRead, "in"), want: result.False},
		{cmd: NewProd(VerbClose, "in"), want: result.True},
	}

	for i, s := range steps {
		got := s.cmd.Process(ctx)
		assert.True(t, s.want.Equal(got), "step %d (%s): got %s, want %s", i, s.cmd.Name(), got, s.want)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", string(data))
}

func TestOpenWithoutTransports(t *testing.T) {
	ctx := tobject.NewRunContext()
	assert.True(t, NewCons(VerbOpenWrite, "mem:x").Process(ctx).Equal(result.False))
	assert.True(t, NewCons(VerbWrite, "mem:x", "data").Process(ctx).Equal(result.False))
}

func TestZeroRunContext(t *testing.T) {
	t.Run("no transports", func(t *testing.T) {
		ctx := &tobject.RunContext{}
		steps := []struct {
			cmd  tobject.TObject
			want result.Result
		}{
			{cmd: NewCons(VerbWrite, "out", "x"), want: result.False},
			{cmd: NewCons(VerbClose, "out"), want: result.False},
			{cmd: NewProd(VerbRead, "in"), want: result.False},
			{cmd: NewProd(VerbReadAll, "in"), want: result.False},
			{cmd: NewCons(VerbOpenWrite, "mem:x"), want: result.False},
			{cmd: NewExpect("in", "x"), want: result.False},
			{cmd: NewFlow("out", "in"), want: result.Int(0)},
		}
		for i, s := range steps {
			got := s.cmd.Process(ctx)
			assert.True(t, s.want.Equal(got), "step %d (%s): got %s, want %s", i, s.cmd.Name(), got, s.want)
		}
		assert.True(t, NewLog("x").ApplyOperation(tobject.NewOperation("hasdata", "in"), ctx).Equal(result.False))
	})

	t.Run("with transports", func(t *testing.T) {
		reg := transport.NewRegistry()
		t.Cleanup(func() { reg.Close() })
		ctx := &tobject.RunContext{Transports: reg}

		require.True(t, NewCons(VerbOpenWrite, "mem:z", "z").Process(ctx).Truthy())
		require.True(t, NewCons(VerbWrite, "z", "data").Process(ctx).Truthy())
		require.True(t, NewCons(VerbClose, "z").Process(ctx).Truthy())
		assert.NotNil(t, ctx.Outlets)

		got, _ := reg.Mem("z")
		assert.Equal(t, "data", got)
	})
}

func TestReadAllAndExpect(t *testing.T) {
	ctx, _, reg := newContext(t)

	require.True(t, NewCons(VerbOpenWrite, "queue:q", "q").Process(ctx).Truthy())
	require.True(t, NewCons(VerbWrite, "q", "a").Process(ctx).Truthy())
	require.True(t, NewCons(VerbWrite, "q", "b").Process(ctx).Truthy())
	require.True(t, NewCons(VerbClose, "q").Process(ctx).Truthy())

	require.True(t, NewProd(VerbOpen, "queue:q", "in").Process(ctx).Truthy())
	r := NewProd(VerbReadAll, "in").Process(ctx)
	assert.Equal(t, "ab", r.Text())

	require.True(t, NewCons(VerbOpenWrite, "mem:buf").Process(ctx).Truthy())
	require.True(t, NewCons(VerbWrite, "mem:buf", "x y").Process(ctx).Truthy())
	require.True(t, NewProd(VerbOpen, "mem:buf", "check").Process(ctx).Truthy())
	assert.True(t, NewExpect("check", "x", "y").Process(ctx).Truthy())
	assert.False(t, NewExpect("check", "x", "y").Process(ctx).Truthy(), "already consumed")

	got, _ := reg.Mem("buf")
	assert.Equal(t, "x y", got)
}

func TestFlow(t *testing.T) {
	ctx, _, reg := newContext(t)
	a, b := dataflow.NewPipe(), dataflow.NewPipe()
	a.Write(dataflow.BlobPayload(blob.FromString("1")))
	a.Write(dataflow.BlobPayload(blob.FromString("2")))
	b.Write(dataflow.BlobPayload(blob.FromString("3")))
	require.NoError(t, ctx.Outlets.Ensure("a").PlugProc(a))
	require.NoError(t, ctx.Outlets.Ensure("b").PlugProc(b))
	require.True(t, NewCons(VerbOpenWrite, "mem:sink", "sink").Process(ctx).Truthy())

	r := NewFlow("sink", "a", "b").Process(ctx)
	n, ok := r.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	got, _ := reg.Mem("sink")
	assert.Equal(t, "123", got)

	assert.True(t, NewFlow("missing", "a").Process(ctx).Equal(result.Int(0)), "drained writers move nothing")
}

func TestGroupShortCircuits(t *testing.T) {
	ctx, out, _ := newContext(t)
	g := NewGroup(NewLog("one"), NewFail(), NewLog("two"))

	r := g.Process(ctx)
	assert.True(t, r.Equal(result.False))
	assert.Equal(t, "one\n", out.String())
}

func TestIf(t *testing.T) {
	tests := []struct {
		name    string
		cond    tobject.Operation
		env     map[string]string
		wantOut string
		want    result.Result
	}{
		{name: "true branch", cond: tobject.NewOperation("true"), wantOut: "yes\n", want: result.True},
		{name: "false branch", cond: tobject.NewOperation("false"), wantOut: "no\n", want: result.True},
		{name: "env match", cond: tobject.NewOperation("env", "MODE", "ci"), env: map[string]string{"MODE": "ci"}, wantOut: "yes\n", want: result.True},
		{name: "env templated", cond: tobject.NewOperation("name", "{{ .N }}"), env: map[string]string{"N": "if"}, wantOut: "yes\n", want: result.True},
		{name: "state while running", cond: tobject.NewOperation("state", "RUNNING"), wantOut: "yes\n", want: result.True},
		{name: "unsupported", cond: tobject.NewOperation("bogus"), want: result.Fatal()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out, _ := newContext(t)
			ctx.MergeEnv(tt.env)
			cmd := NewIf(tt.cond, NewLog("yes"), NewLog("no"))

			got := cmd.Run(ctx)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.wantOut, out.String())
		})
	}

	t.Run("missing branch succeeds", func(t *testing.T) {
		ctx, _, _ := newContext(t)
		assert.True(t, NewIf(tobject.NewOperation("false"), NewFail(), nil).Process(ctx).Equal(result.True))
	})
}

func TestCommandOperations(t *testing.T) {
	ctx, _, _ := newContext(t)
	ctx.SetEnv("K", "v")
	path := filepath.Join(t.TempDir(), "exists")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	pipe := dataflow.NewPipe()
	pipe.Write(dataflow.ResultPayload(result.Int(1)))
	require.NoError(t, ctx.Outlets.Ensure("p").PlugProc(pipe))

	cmd := NewPass()
	tests := []struct {
		op   tobject.Operation
		want bool
	}{
		{op: tobject.NewOperation("env", "K"), want: true},
		{op: tobject.NewOperation("env", "K", "v"), want: true},
		{op: tobject.NewOperation("env", "K", "w"), want: false},
		{op: tobject.NewOperation("env", "OTHER"), want: false},
		{op: tobject.NewOperation("exists", path), want: true},
		{op: tobject.NewOperation("exists", path+".nope"), want: false},
		{op: tobject.NewOperation("hasdata", "p"), want: true},
		{op: tobject.NewOperation("hasdata", "q"), want: false},
		{op: tobject.NewOperation("name", "pass"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			require.True(t, cmd.SupportsOperation(tt.op))
			assert.Equal(t, tt.want, cmd.ApplyOperation(tt.op, ctx).Truthy())
		})
	}
}

func TestSetEnv(t *testing.T) {
	ctx, _, _ := newContext(t)
	require.True(t, NewSetEnv("A", "x", "y").Process(ctx).Truthy())
	v, ok := ctx.Env("A")
	require.True(t, ok)
	assert.Equal(t, "x y", v)
	assert.True(t, NewSetEnv("").Process(ctx).IsFatal())
}

func TestBuiltinRoundTrip(t *testing.T) {
	reg := newRegistry()

	original := NewGroup(
		NewLog("first"),
		NewIf(tobject.NewOperation("env", "X"), NewLog("set"), NewGroup(NewLog("unset"), NewPass())),
		NewCons(VerbWrite, "out", "data"),
	)

	s, err := original.Serialize()
	require.NoError(t, err)
	b, err := s.Blob()
	require.NoError(t, err)

	obj, err := reg.Construct(factory.CategoryCommand, "group", b)
	require.NoError(t, err)
	g, ok := obj.(*Group)
	require.True(t, ok)
	require.Equal(t, 3, g.Len())

	children := g.Children()
	assert.Equal(t, []string{"first"}, children[0].(Command).Parameters())
	cond, ok := children[1].(*If)
	require.True(t, ok)
	assert.Equal(t, []string{"env", "X"}, cond.Parameters())
	require.NotNil(t, cond.Else())
	assert.Equal(t, 2, cond.Else().(*Group).Len())
	assert.Equal(t, []string{"out", "data"}, children[2].(Command).Parameters())

	again, err := obj.(Command).Serialize()
	require.NoError(t, err)
	b2, err := again.Blob()
	require.NoError(t, err)
	assert.JSONEq(t, string(b.Data), string(b2.Data))
}

func TestBuiltinRejectsMalformed(t *testing.T) {
	reg := newRegistry()
	tests := []struct {
		name string
		data string
	}{
		{name: "write", data: `{"name":"write","parameters":[]}`},
		{name: "log", data: `{"name":"log","parameters":"oops"}`},
		{name: "group", data: `{"name":"group","commands":[{"name":"nope"}]}`},
		{name: "if", data: `{"name":"if","parameters":["true"],"then":{"parameters":[]}}`},
		{name: "flow", data: `{"name":"flow","parameters":["only"]}`},
		{name: "log", data: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			obj, err := reg.Construct(factory.CategoryCommand, tt.name, blob.New(blob.TypeStructured, []byte(tt.data)))
			assert.Error(t, err)
			assert.Nil(t, obj)
		})
	}

	_, err := reg.Construct(factory.CategoryCommand, "unknown", nil)
	assert.ErrorIs(t, err, factory.ErrNoFactory)
}

func TestVerbsAreConstructible(t *testing.T) {
	reg := newRegistry()
	for _, verb := range Verbs() {
		s := blob.NewStructured()
		s.SetString("name", verb)
		s.SetStrings("parameters", []string{"a", "b"})
		b, err := s.Blob()
		require.NoError(t, err)

		obj, err := reg.Construct(factory.CategoryCommand, verb, b)
		require.NoError(t, err, verb)
		assert.Equal(t, verb, obj.Name())
		assert.True(t, obj.Type().IsA(TypeCommand), verb)
	}
}
