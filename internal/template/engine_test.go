package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	e := New()
	env := map[string]string{"DIR": "/tmp", "NAME": "suite"}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{name: "plain text untouched", in: "Hello\n", want: "Hello\n"},
		{name: "dotted variable", in: "{{ .DIR }}/f", want: "/tmp/f"},
		{name: "bare variable", in: "{{DIR}}/f", want: "/tmp/f"},
		{name: "sprig function", in: "{{ .NAME | upper }}", want: "SUITE"},
		{name: "sprig default", in: `{{ .NAME | default "x" }}`, want: "suite"},
		{name: "missing variable", in: "{{ .OTHER }} {{ .GONE }}", wantErr: "missing template variables: OTHER, GONE"},
		{name: "invalid template", in: "{{ .DIR ", wantErr: "invalid template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.in, env)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderAll(t *testing.T) {
	out, err := New().RenderAll([]string{"write", "{{ .F }}", "x"}, map[string]string{"F": "/tmp/f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"write", "/tmp/f", "x"}, out)

	_, err = New().RenderAll([]string{"{{ .F }}"}, nil)
	assert.ErrorContains(t, err, "error at index 0")
}

func TestReplaceNested(t *testing.T) {
	e := New()
	in := map[string]interface{}{
		"path": "{{ .DIR }}",
		"list": []interface{}{"{{ .DIR }}/a", 3},
	}
	out, err := e.Replace(in, map[string]interface{}{"DIR": "/d"})
	require.NoError(t, err)

	m := out.(map[string]interface{})
	assert.Equal(t, "/d", m["path"])
	assert.Equal(t, []interface{}{"/d/a", 3}, m["list"])
}

func TestExtractAndValidate(t *testing.T) {
	e := New()
	value := []interface{}{"{{ .B }}", "{{ A }}", "{{ now }}"}

	assert.Equal(t, []string{"A", "B"}, e.ExtractVariables(value))
	assert.NoError(t, e.ValidateContext(value, map[string]interface{}{"A": 1, "B": 2}))
	assert.EqualError(t, e.ValidateContext(value, map[string]interface{}{"A": 1}), "missing required variables: B")
}

func TestMergeContexts(t *testing.T) {
	merged := MergeContexts(
		map[string]interface{}{"a": 1, "b": 1},
		EnvContext(map[string]string{"b": "2"}),
	)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "2"}, merged)
}
