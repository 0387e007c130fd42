// Package ui renders engine state for the terminal. The daemon speaks JSON;
// this is the human-facing side used by the CLI subcommands.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/listingwire/scrapegate/pkg/gate"
)

// Reporter writes admission decisions and status snapshots to a terminal.
type Reporter struct {
	writer io.Writer
	quiet  bool
}

// NewReporter creates a reporter writing to the given writer.
func NewReporter(writer io.Writer) *Reporter {
	return &Reporter{writer: writer}
}

// SetQuiet suppresses everything except denials.
func (r *Reporter) SetQuiet(quiet bool) {
	r.quiet = quiet
}

// Decision renders one admission decision for a source.
func (r *Reporter) Decision(sourceID string, d gate.Decision) {
	if d.Allowed {
		if !r.quiet {
			fmt.Fprintf(r.writer, "%s: admissible now\n", sourceID)
		}
		return
	}
	fmt.Fprintf(r.writer, "%s: denied (%s), retry in %s\n", sourceID, d.Reason, r.formatDuration(d.Wait))
	if d.Detail != "" {
		fmt.Fprintf(r.writer, "  %s\n", d.Detail)
	}
}

// Snapshot renders a full status snapshot, one line per source.
func (r *Reporter) Snapshot(snap gate.StatusSnapshot) {
	fmt.Fprintf(r.writer, "Status at %s\n", snap.TakenAt.Format(time.RFC3339))
	fmt.Fprintf(r.writer, "Global: %s\n", windowLine(snap.Global.Minute, snap.Global.Hour, snap.Global.Day))

	for _, src := range snap.Sources {
		fmt.Fprintf(r.writer, "  %-16s %-8s %s", src.ID, sourceState(src), windowLine(src.Minute, src.Hour, src.Day))
		if src.ConsecutiveErrors > 0 {
			fmt.Fprintf(r.writer, ", errors %d", src.ConsecutiveErrors)
		}
		if src.CooldownUntil != nil && src.CooldownUntil.After(snap.TakenAt) {
			fmt.Fprintf(r.writer, ", cooldown %s", r.formatDuration(src.CooldownUntil.Sub(snap.TakenAt)))
		}
		fmt.Fprintln(r.writer)
	}
}

func sourceState(src gate.SourceStatus) string {
	switch {
	case src.InCooldown:
		return "cooldown"
	case !src.GateOpen:
		return "closed"
	default:
		return "open"
	}
}

func windowLine(minute, hour, day gate.WindowStatus) string {
	return fmt.Sprintf("minute %d/%d, hour %d/%d, day %d/%d",
		minute.Count, minute.Limit, hour.Count, hour.Limit, day.Count, day.Limit)
}

// formatDuration formats a duration in a human-readable way.
func (r *Reporter) formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
	}
	if d < time.Minute {
		seconds := float64(d) / float64(time.Second)
		if seconds == float64(int(seconds)) {
			return fmt.Sprintf("%.0fs", seconds)
		}
		formatted := strings.TrimRight(fmt.Sprintf("%.2f", seconds), "0")
		formatted = strings.TrimRight(formatted, ".")
		return formatted + "s"
	}

	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dm", minutes)
	}
	if seconds > 0 || b.Len() == 0 {
		fmt.Fprintf(&b, "%ds", seconds)
	}
	return b.String()
}
