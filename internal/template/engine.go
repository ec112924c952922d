package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var funcs = sprig.TxtFuncMap()

// Engine renders command parameters against the run environment. Parameters
// are Go text/templates with the sprig function library, e.g.
// "{{ .OUT_DIR }}/log.txt" or "{{ .NAME | upper }}".
type Engine struct {
	// Pattern to match plain variable references like {{ .name }}
	templatePattern *regexp.Regexp

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
		cache:           make(map[string]*template.Template),
	}
}

// Replace renders all templates in a value with values from the context.
// Strings are rendered, maps and slices are walked recursively and anything
// else is returned unchanged.
func (e *Engine) Replace(value interface{}, context map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.replaceStringTemplates(v, context)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			r, err := e.replaceStringTemplates(s, context)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	case map[string]interface{}:
		return e.replaceMapTemplates(v, context)
	case []interface{}:
		return e.replaceSliceTemplates(v, context)
	default:
		return value, nil
	}
}

// Render renders a single string against a string environment.
func (e *Engine) Render(s string, env map[string]string) (string, error) {
	return e.replaceStringTemplates(s, EnvContext(env))
}

// RenderAll renders every parameter against env.
func (e *Engine) RenderAll(params []string, env map[string]string) ([]string, error) {
	out, err := e.Replace(params, EnvContext(env))
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (e *Engine) replaceStringTemplates(text string, context map[string]interface{}) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	// Report every missing plain variable at once rather than the first one
	// text/template trips over.
	var missingVars []string
	for _, match := range e.templatePattern.FindAllStringSubmatch(text, -1) {
		if _, exists := context[match[1]]; !exists && !isBuiltin(match[1]) {
			missingVars = append(missingVars, match[1])
		}
	}
	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missingVars, ", "))
	}

	tmpl, err := e.parse(e.normalize(text))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", text, err)
	}
	return buf.String(), nil
}

// normalize rewrites bare references such as {{ name }} to {{ .name }} so
// both spellings resolve against the context.
func (e *Engine) normalize(text string) string {
	return e.templatePattern.ReplaceAllStringFunc(text, func(m string) string {
		name := e.templatePattern.FindStringSubmatch(m)[1]
		if isBuiltin(name) {
			return m
		}
		return "{{ ." + name + " }}"
	})
}

func (e *Engine) parse(text string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cache[text]; ok {
		return t, nil
	}
	t, err := template.New("param").
		Option("missingkey=error").
		Funcs(funcs).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", text, err)
	}
	e.cache[text] = t
	return t, nil
}

// isBuiltin reports names that look like variables but are template
// keywords or zero-argument functions, e.g. {{ now }}.
func isBuiltin(name string) bool {
	switch name {
	case "end", "else", "nil", "true", "false":
		return true
	}
	_, ok := funcs[name]
	return ok
}

// replaceMapTemplates recursively replaces templates in a map
func (e *Engine) replaceMapTemplates(m map[string]interface{}, context map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for key, value := range m {
		replacedValue, err := e.Replace(value, context)
		if err != nil {
			return nil, fmt.Errorf("error in key '%s': %w", key, err)
		}
		result[key] = replacedValue
	}

	return result, nil
}

// replaceSliceTemplates recursively replaces templates in a slice
func (e *Engine) replaceSliceTemplates(s []interface{}, context map[string]interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(s))

	for i, value := range s {
		replacedValue, err := e.Replace(value, context)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result[i] = replacedValue
	}

	return result, nil
}

// ExtractVariables extracts all plain variable names from a value, sorted.
func (e *Engine) ExtractVariables(value interface{}) []string {
	variables := make(map[string]bool)
	e.extractVariablesRecursive(value, variables)

	result := make([]string, 0, len(variables))
	for varName := range variables {
		result = append(result, varName)
	}
	sort.Strings(result)
	return result
}

func (e *Engine) extractVariablesRecursive(value interface{}, variables map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, match := range e.templatePattern.FindAllStringSubmatch(v, -1) {
			if !isBuiltin(match[1]) {
				variables[match[1]] = true
			}
		}
	case []string:
		for _, s := range v {
			e.extractVariablesRecursive(s, variables)
		}
	case map[string]interface{}:
		for _, val := range v {
			e.extractVariablesRecursive(val, variables)
		}
	case []interface{}:
		for _, val := range v {
			e.extractVariablesRecursive(val, variables)
		}
	}
}

// ValidateContext ensures all required variables are present in the context
func (e *Engine) ValidateContext(value interface{}, context map[string]interface{}) error {
	requiredVars := e.ExtractVariables(value)

	var missingVars []string
	for _, varName := range requiredVars {
		if _, exists := context[varName]; !exists {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
