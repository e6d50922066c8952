package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

// ToPtr returns a pointer to a copy of v.
func ToPtr[T any](v T) *T {
	return &v
}

// NilIfEmpty returns nil for the empty string and a pointer otherwise.
// Optional JSON fields use it to stay omitted instead of serialising "".
func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
