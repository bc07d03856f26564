//go:build linux

package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// linuxProbe shells out to xprintidle and xdotool, the same tools an X11
// desktop already has lying around. Each call is bounded by a short timeout
// so a hung helper can never stall the poll.
type linuxProbe struct {
	timeout time.Duration
}

func newPlatformProbe() Probe {
	return &linuxProbe{timeout: 1 * time.Second}
}

func (p *linuxProbe) run(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *linuxProbe) IdleSeconds() (int, error) {
	out, err := p.run("xprintidle")
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("xprintidle output %q: %w", out, err)
	}
	return millis / 1000, nil
}

func (p *linuxProbe) ForegroundWindow() (string, string, error) {
	windowID, err := p.run("xdotool", "getactivewindow")
	if err != nil {
		return "", "", err
	}

	title, err := p.run("xdotool", "getwindowname", windowID)
	if err != nil {
		title = ""
	}

	pidStr, err := p.run("xdotool", "getwindowpid", windowID)
	if err != nil {
		return "", title, err
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return "", title, fmt.Errorf("window pid %q: %w", pidStr, err)
	}

	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", title, err
	}
	return strings.TrimSpace(string(comm)), title, nil
}
