//go:build !js_eval

package restcache

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}

func isJSEvaluator(Evaluator) bool {
	return false
}
