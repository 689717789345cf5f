package pkg

// Contains check source have target
func Contains[T comparable](slice []T, val T) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

// Unique drop zero values and duplicates, keeping first-seen order
func Unique[T comparable](slice []T) []T {
	var zero T
	out := make([]T, 0, len(slice))
	seen := make(map[T]struct{}, len(slice))
	for _, v := range slice {
		if v == zero {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
