package utils

// ToPointer returns a pointer to the given value.
func ToPointer[T any](v T) *T {
	return &v
}

// TruncateRunes returns s cut to at most n runes, never splitting a rune.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
