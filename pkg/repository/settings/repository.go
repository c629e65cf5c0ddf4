package settings

import "context"

// Store persists project settings as plain string values.
type Store interface {
	// GetSetting returns the value stored under key, or nil when the key is unset.
	GetSetting(ctx context.Context, key string) (*string, error)

	// SetSetting stores value under key. A nil value clears the setting.
	SetSetting(ctx context.Context, key string, value *string) error

	// All returns every stored setting.
	All(ctx context.Context) (map[string]string, error)
}
