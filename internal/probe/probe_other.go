//go:build !linux && !darwin && !windows

package probe

import "fmt"

type unsupportedProbe struct{}

func newPlatformProbe() Probe {
	return &unsupportedProbe{}
}

func (p *unsupportedProbe) IdleSeconds() (int, error) {
	return 0, fmt.Errorf("idle detection not supported on this platform")
}

func (p *unsupportedProbe) ForegroundWindow() (string, string, error) {
	return "", "", fmt.Errorf("foreground window not supported on this platform")
}
