package http

import (
	_ "embed"
	"encoding/json"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISource []byte

// openAPIDocument converts the embedded YAML description to JSON once and
// caches the result for every later request.
var openAPIDocument = sync.OnceValues(func() ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openAPISource, &doc); err != nil {
		return nil, err
	}
	return json.MarshalIndent(stringKeyed(doc), "", "  ")
})

// stringKeyed rewrites nested YAML maps so every key is a string, which
// encoding/json requires.
func stringKeyed(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = stringKeyed(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if s, ok := key.(string); ok {
				out[s] = stringKeyed(val)
			}
		}
		return out
	case []any:
		for i, val := range v {
			v[i] = stringKeyed(val)
		}
		return v
	default:
		return v
	}
}
