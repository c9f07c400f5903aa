// Package setup implements the interactive first-run wizard that configures
// notifiers and geofence defaults and installs placereminder as a user service.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Prompter reads answers line by line from r and writes prompts to w. The
// CLI passes os.Stdin and os.Stdout; tests pass buffers.
type Prompter struct {
	scanner *bufio.Scanner
	w       io.Writer
	eof     bool
}

// NewPrompter returns a Prompter reading from r and writing to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(r), w: w}
}

// ask prints the prompt and returns the trimmed answer. ok is false once the
// input is exhausted.
func (p *Prompter) ask(format string, args ...any) (answer string, ok bool) {
	_, _ = fmt.Fprintf(p.w, "  "+format+": ", args...)
	if !p.scanner.Scan() {
		p.eof = true
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

func (p *Prompter) hint(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, "  ("+format+")\n", args...)
}

func (p *Prompter) list(label string, options []string) {
	_, _ = fmt.Fprintf(p.w, "  %s:\n", label)
	for i, opt := range options {
		_, _ = fmt.Fprintf(p.w, "    %d) %s\n", i+1, opt)
	}
}

// String asks for a text value. Enter alone yields defaultVal; with no
// default the question repeats until something is typed.
func (p *Prompter) String(label, defaultVal string) string {
	format, args := "%s", []any{label}
	if defaultVal != "" {
		format, args = "%s [%s]", []any{label, defaultVal}
	}
	for {
		val, ok := p.ask(format, args...)
		switch {
		case !ok:
			return defaultVal
		case val != "":
			return val
		case defaultVal != "":
			return defaultVal
		}
		p.hint("required, please enter a value")
	}
}

// Secret asks for a required token. Input is echoed.
func (p *Prompter) Secret(label string) string {
	return p.String(label, "")
}

// Optional asks for a value that may be left empty.
func (p *Prompter) Optional(label string) string {
	val, _ := p.ask("%s (optional)", label)
	return val
}

// Float asks for a number; empty input yields defaultVal.
func (p *Prompter) Float(label string, defaultVal float64) float64 {
	return parseUntil(p, label, strconv.FormatFloat(defaultVal, 'f', -1, 64), defaultVal,
		func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		"%q is not a number")
}

// Int64 asks for a required integer such as a Telegram chat ID. It returns 0
// when input runs out.
func (p *Prompter) Int64(label string) int64 {
	return parseUntil(p, label, "", 0,
		func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		"%q is not a whole number")
}

// Duration asks for a Go duration such as "24h" or "90m".
func (p *Prompter) Duration(label string, defaultVal time.Duration) time.Duration {
	return parseUntil(p, label, defaultVal.String(), defaultVal,
		time.ParseDuration,
		"%q is not a duration, e.g. 24h or 90m")
}

// parseUntil repeats the String prompt until parse accepts the answer or the
// input is exhausted, in which case fallback is returned.
func parseUntil[T any](p *Prompter, label, def string, fallback T, parse func(string) (T, error), bad string) T {
	for {
		val := p.String(label, def)
		if v, err := parse(val); err == nil {
			return v
		}
		if p.eof {
			return fallback
		}
		p.hint(bad, val)
	}
}

// Confirm asks a yes/no question. Enter alone, or end of input, yields
// defaultYes.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	choices := "y/N"
	if defaultYes {
		choices = "Y/n"
	}
	answer, ok := p.ask("%s [%s]", label, choices)
	if !ok || answer == "" {
		return defaultYes
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// Select lists options and returns the zero-based index of the one picked.
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("no options to select from")
	}
	p.list(label, options)
	for {
		val, ok := p.ask("Choice [1-%d]", len(options))
		if !ok {
			return -1, errors.New("no input")
		}
		if n, valid := choice(val, len(options)); valid {
			return n, nil
		}
		p.hint("enter a number between 1 and %d", len(options))
	}
}

// MultiSelect lists options and returns the zero-based indices of a
// comma-separated answer such as "1,3".
func (p *Prompter) MultiSelect(label string, options []string) ([]int, error) {
	if len(options) == 0 {
		return nil, errors.New("no options to select from")
	}
	p.list(label, options)
next:
	for {
		val, ok := p.ask("Choices (comma-separated, e.g. 1,3)")
		if !ok {
			return nil, errors.New("no input")
		}
		var picked []int
		for _, part := range strings.Split(val, ",") {
			n, valid := choice(part, len(options))
			if !valid {
				p.hint("enter numbers between 1 and %d, separated by commas", len(options))
				continue next
			}
			picked = append(picked, n)
		}
		return picked, nil
	}
}

// choice converts a 1-based answer into a 0-based index within [0, n).
func choice(s string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
