package feature

import "fmt"

// ConfigError reports an unrecognised or inconsistent strategy setting.
// It is fatal: a run never starts with a ConfigError outstanding.
type ConfigError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s %q", e.Setting, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Setting, e.Value, e.Reason)
}

// ResourceError reports an input image that could not be loaded.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to load image %s", e.Path)
	}
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
