//go:build !linux

// internal/platform/affinity_other.go

package platform

// pinCurrentThread is a no-op where thread affinity is not supported.
func pinCurrentThread(int) error { return nil }
