package result

import (
	"testing"

	"mec/internal/blob"

	"github.com/stretchr/testify/assert"
)

type namedObject string

func (n namedObject) Name() string { return string(n) }

type fakeCursor struct{ done bool }

func (c *fakeCursor) Done() bool { return c.done }

func TestResult_Truthy(t *testing.T) {
	obj := namedObject("x")
	tests := []struct {
		name     string
		r        Result
		expected bool
	}{
		{"unset", Result{}, false},
		{"fatal", Fatal(), false},
		{"false", False, false},
		{"true", True, true},
		{"zero int", Int(0), true},
		{"empty string", String(""), true},
		{"blob", Blob(blob.FromString("x")), true},
		{"object", ObjectOf(obj), true},
		{"command", CommandOf(obj), true},
		{"iterator", IteratorOf(&fakeCursor{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.r.Truthy())
		})
	}
}

func TestResult_TypedAccessors(t *testing.T) {
	r := Int(7)

	i, ok := r.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(7), i)

	b, ok := r.AsBool()
	assert.False(t, ok, "variant mismatch must fail")
	assert.False(t, b)

	s, ok := Unset().AsString()
	assert.False(t, ok, "unset must fail")
	assert.Empty(t, s)

	_, ok = Fatal().AsBool()
	assert.False(t, ok)

	obj := namedObject("cmd")
	o, ok := CommandOf(obj).AsCommand()
	assert.True(t, ok)
	assert.Equal(t, "cmd", o.Name())
	_, ok = CommandOf(obj).AsObject()
	assert.False(t, ok, "command and object are distinct variants")
}

func TestResult_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Result
		expected int
	}{
		{"bool less", False, True, -1},
		{"bool equal", True, True, 0},
		{"bool greater", True, False, 1},
		{"int less", Int(1), Int(2), -1},
		{"int equal", Int(5), Int(5), 0},
		{"string order", String("a"), String("b"), -1},
		{"string equal", String("x"), String("x"), 0},
		{"cross type", Int(1), String("1"), Incomparable},
		{"unset", Unset(), Unset(), Incomparable},
		{"unset vs bool", Unset(), True, Incomparable},
		{"fatal", Fatal(), Fatal(), Incomparable},
		{"blob", Blob(blob.FromString("a")), Blob(blob.FromString("a")), Incomparable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Compare(tt.b))
		})
	}
}

func TestResult_Equal(t *testing.T) {
	a := namedObject("a")
	cur := &fakeCursor{}

	assert.True(t, String("Hello\n").Equal(String("Hello\n")), "strings compare by value")
	assert.False(t, String("a").Equal(Int(1)))
	assert.True(t, Fatal().Equal(Fatal()))
	assert.True(t, Unset().Equal(Result{}))
	assert.False(t, Unset().Equal(Fatal()))
	assert.True(t, ObjectOf(a).Equal(ObjectOf(a)))
	assert.False(t, ObjectOf(a).Equal(ObjectOf(namedObject("b"))))
	assert.True(t, IteratorOf(cur).Equal(IteratorOf(cur)))
	assert.True(t, Blob(blob.FromString("z")).Equal(Blob(blob.FromString("z"))))
}

func TestResult_Text(t *testing.T) {
	assert.Equal(t, "true", True.Text())
	assert.Equal(t, "42", Int(42).Text())
	assert.Equal(t, "hi", String("hi").Text())
	assert.Equal(t, "raw", Blob(blob.FromString("raw")).Text())
	assert.Equal(t, "", Fatal().Text())
	assert.Equal(t, "FATAL", Fatal().String())
	assert.Equal(t, `string("x")`, String("x").String())
}
