// Package uuidgen mints random UUIDs, typically used as VLESS user ids.
package uuidgen

import "github.com/google/uuid"

const (
	MinCount = 1
	MaxCount = 100
)

// Clamp bounds n to [MinCount, MaxCount].
func Clamp(n int) int {
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// Generate returns Clamp(n) version 4 UUIDs in canonical lowercase form.
func Generate(n int) []string {
	n = Clamp(n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, uuid.NewString())
	}
	return out
}
