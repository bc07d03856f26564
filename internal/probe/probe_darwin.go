//go:build darwin

package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// darwinProbe uses ioreg for the HID idle counter and osascript for the
// frontmost application, both bounded by a short timeout.
type darwinProbe struct {
	timeout time.Duration
}

func newPlatformProbe() Probe {
	return &darwinProbe{timeout: 2 * time.Second}
}

func (p *darwinProbe) run(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *darwinProbe) IdleSeconds() (int, error) {
	out, err := p.run("ioreg", "-c", "IOHIDSystem")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		idleNs, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("HIDIdleTime %q: %w", parts[1], err)
		}
		return int(idleNs / 1_000_000_000), nil
	}
	return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
}

const frontmostScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set windowTitle to ""
	try
		set windowTitle to name of front window of frontApp
	end try
end tell
return appName & linefeed & windowTitle`

func (p *darwinProbe) ForegroundWindow() (string, string, error) {
	out, err := p.run("osascript", "-e", frontmostScript)
	if err != nil {
		return "", "", err
	}
	lines := strings.SplitN(out, "\n", 2)
	app := strings.TrimSpace(lines[0])
	title := ""
	if len(lines) == 2 {
		title = strings.TrimSpace(lines[1])
	}
	return app, title, nil
}
