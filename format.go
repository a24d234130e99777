package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/blob2spo/blob2spo/internal/transfer"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeTB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(sizeTB))
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// describeStatus renders one progress event.
func describeStatus(st transfer.Status) string {
	switch st.Event {
	case transfer.StartDownload:
		return "reading blob"
	case transfer.Downloading, transfer.DownloadComplete:
		return fmt.Sprintf("%s: %s read", st.Event, formatSize(st.Bytes))
	case transfer.StartUpload, transfer.ContinueUpload, transfer.FinishUpload:
		return fmt.Sprintf("%s: %s at %s", st.Event, formatSize(st.Bytes), formatSize(st.Offset))
	case transfer.UploadComplete:
		return fmt.Sprintf("%s: %s uploaded", st.Event, formatSize(st.Offset))
	default:
		return st.Event.String()
	}
}

// progressPrinter shows transfer events on stderr. On a terminal it rewrites
// one line in place; otherwise it prints one line per upload event and skips
// the per-fragment download ticks.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	quiet bool

	width int // longest line drawn so far, for clearing
	drawn bool
}

func newProgressPrinter(f *os.File, quiet bool) *progressPrinter {
	fd := f.Fd()

	return &progressPrinter{
		w:     f,
		tty:   isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		quiet: quiet,
	}
}

// Update is a transfer.StatusFunc.
func (p *progressPrinter) Update(st transfer.Status) {
	if p.quiet {
		return
	}

	line := describeStatus(st)

	if !p.tty {
		if st.Event == transfer.Downloading {
			return
		}

		fmt.Fprintln(p.w, line)

		return
	}

	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}

	fmt.Fprintf(p.w, "\r%s%s", line, pad)

	p.width = max(p.width, len(line))
	p.drawn = true
}

// Done ends the in-place line so later output starts on a fresh one.
func (p *progressPrinter) Done() {
	if p.tty && p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
