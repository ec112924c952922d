package template

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

// EnvContext lifts a run environment into a template context.
func EnvContext(env map[string]string) map[string]interface{} {
	result := make(map[string]interface{}, len(env))
	for key, value := range env {
		result[key] = value
	}
	return result
}
