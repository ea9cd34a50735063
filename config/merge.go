package config

// mergeMaps merges src into dst, recursing into nested maps. Nested maps from
// src are copied, so a later merge never writes into a source's own data.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		mv, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(mv))
			dst[k] = existing
		}
		mergeMaps(existing, mv)
	}
}
