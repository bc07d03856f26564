// Package probe supplies the platform-specific idle-time and foreground
// window queries. Implementations are best-effort: they return an error
// instead of panicking or blocking, and callers treat a failure as "no
// change this poll".
package probe

// Probe is the platform capability consumed by the activity monitor.
type Probe interface {
	// IdleSeconds returns the seconds since the last user input.
	IdleSeconds() (int, error)
	// ForegroundWindow returns the focused application's process name and
	// window title.
	ForegroundWindow() (appName, windowTitle string, err error)
}

// New returns the probe for the current platform.
func New() Probe {
	return newPlatformProbe()
}
