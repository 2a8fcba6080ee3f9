package functional

// Map applies fn to every element of items and returns the results.
func Map[T any, R any](items []T, fn func(T) R) []R {
	results := make([]R, len(items))
	for i, item := range items {
		results[i] = fn(item)
	}
	return results
}

// Filter returns the elements of items for which fn reports true.
func Filter[T any](items []T, fn func(T) bool) []T {
	results := make([]T, 0, len(items))
	for _, item := range items {
		if fn(item) {
			results = append(results, item)
		}
	}
	return results
}
