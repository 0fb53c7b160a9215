// Package strings holds small string-slice helpers shared by the list loaders.
package strings

// UniqueBy maps every value through key and returns the distinct, non-empty
// keys in first-seen order. key is typically a normalizer, so values that
// differ only in case, spacing or punctuation collapse into one.
func UniqueBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := key(v)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
