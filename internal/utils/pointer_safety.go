package utils

// Value dereferences v, returning the zero value for nil. Optional claims
// decode into pointers so absent and false can be told apart.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
