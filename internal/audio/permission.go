package audio

import "strings"

// PermissionChecker reports whether the host allows microphone access.
// It is consulted synchronously before any device is touched.
type PermissionChecker interface {
	MicrophoneGranted() bool
}

// StaticPermission is a PermissionChecker with a fixed answer.
type StaticPermission bool

func (p StaticPermission) MicrophoneGranted() bool {
	return bool(p)
}

// PermissionFromString maps the capture.permission setting to a checker.
// Anything other than "denied" grants access.
func PermissionFromString(s string) PermissionChecker {
	return StaticPermission(!strings.EqualFold(strings.TrimSpace(s), "denied"))
}
