package utils

// Value dereferences v, returning the zero value of T when v is nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns nil for an empty string and a pointer to s otherwise.
// Optional wire fields (refresh_token, scope, client_secret) use it.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EqualPtr reports whether two optional values are both absent or both
// present and equal.
func EqualPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
