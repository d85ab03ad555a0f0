package notification

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"terapiahub/internal/models"
)

// Alerter produces the desktop-notification and sound side effects for a
// newly arrived notification. It must not block for long and never fails.
type Alerter interface {
	Alert(ctx context.Context, role models.Role, n models.Notification)
}

// Permission mirrors the browser notification permission.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, models.Role, models.Notification) {}

// TerminalAlerter prints a colored banner and rings the terminal bell.
type TerminalAlerter struct {
	out        io.Writer
	permission Permission
	sound      bool
}

func NewTerminalAlerter(out io.Writer, permission Permission, sound bool) *TerminalAlerter {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalAlerter{out: out, permission: permission, sound: sound}
}

func (a *TerminalAlerter) Alert(_ context.Context, role models.Role, n models.Notification) {
	if a.permission == PermissionGranted {
		d := Lookup(role, n.Tipo)
		c := colorFor(d.Color)
		c.Fprintf(a.out, "%s %s\n", d.Icon, d.Title)
		fmt.Fprintf(a.out, "   %s\n", n.Mensaje)
	}
	if a.sound {
		// playback is best-effort
		_, _ = io.WriteString(a.out, "\a")
	}
}

func colorFor(class string) *color.Color {
	switch class {
	case "info":
		return color.New(color.FgCyan, color.Bold)
	case "success":
		return color.New(color.FgGreen, color.Bold)
	case "warning":
		return color.New(color.FgYellow, color.Bold)
	case "danger":
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.Bold)
}

// ThrottledAlerter drops alerts beyond a rate so a burst of pushed
// notifications after a reconnect does not flood the user. The notifications
// themselves are still stored; only the side effect is skipped.
type ThrottledAlerter struct {
	next    Alerter
	limiter *rate.Limiter
}

func NewThrottledAlerter(next Alerter, limit rate.Limit, burst int) *ThrottledAlerter {
	return &ThrottledAlerter{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (a *ThrottledAlerter) Alert(ctx context.Context, role models.Role, n models.Notification) {
	if !a.limiter.Allow() {
		return
	}
	a.next.Alert(ctx, role, n)
}
