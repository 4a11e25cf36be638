package store

import (
	"context"
)

// Well-known keys.
const (
	KeyGoals            = "goals"
	KeySelectedCategory = "selectedCategory"
	KeyDarkMode         = "darkMode"
)

// KV is a string key/value store. Get reports found=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
