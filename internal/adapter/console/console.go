package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"github.com/V4T54L/safelog/internal/domain"
)

// Console echoes entries as "[<timestamp>] <LEVEL>: <message> <metadata>".
// ERROR and WARN go to the error stream, INFO and DEBUG to the output stream.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	styles map[domain.Level]*color.Color
}

// New returns a Console on os.Stdout and os.Stderr. Colour follows
// fatih/color's terminal detection.
func New() *Console {
	return NewWithWriters(color.Output, color.Error, !color.NoColor)
}

// NewWithWriters returns a Console writing to out and errOut.
func NewWithWriters(out, errOut io.Writer, colored bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	styles := map[domain.Level]*color.Color{
		domain.LevelError: color.New(color.FgRed, color.Bold),
		domain.LevelWarn:  color.New(color.FgYellow),
		domain.LevelInfo:  color.New(color.FgCyan),
		domain.LevelDebug: color.New(color.FgMagenta),
	}
	for _, c := range styles {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &Console{out: out, errOut: errOut, styles: styles}
}

// Print writes one line for entry.
func (c *Console) Print(entry domain.LogEntry) {
	header := fmt.Sprintf("[%s] %s:", entry.Timestamp, entry.Level)
	if style, ok := c.styles[entry.Level]; ok {
		header = style.Sprint(header)
	}

	line := header + " " + entry.Message
	if len(entry.Metadata) > 0 {
		meta, err := json.Marshal(entry.Metadata)
		if err != nil {
			meta = []byte(fmt.Sprintf("%q", "unserializable metadata: "+err.Error()))
		}
		line += " " + string(meta)
	}

	w := c.out
	if entry.Level == domain.LevelError || entry.Level == domain.LevelWarn {
		w = c.errOut
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, line)
}
