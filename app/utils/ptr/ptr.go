package ptr

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

func ToUint(v uint) *uint {
	return &v
}

func ToString(v string) *string {
	return &v
}
