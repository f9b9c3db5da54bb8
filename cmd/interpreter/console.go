package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/session"
)

const helpText = `commands:
  start [locale]        start capturing speech (e.g. start es-MX)
  stop                  stop capturing
  clear                 clear the transcript
  translate <code>      translate the transcript (e.g. translate fr)
  text <code> <text>    translate typed text
  speak                 read the translation aloud
  stop-speaking         stop reading
  toggle                speak or stop
  view                  print the current state
  languages             list locales and target languages
  quit                  exit`

// terminalPresenter prints a status line whenever the session view changes.
type terminalPresenter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (p *terminalPresenter) Render(v session.View) {
	line := formatView(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.out, line)
}

func formatView(v session.View) string {
	var b strings.Builder
	if v.Transcript.IsCapturing {
		fmt.Fprintf(&b, "[listening %s]", v.SourceName)
	} else {
		b.WriteString("[idle]")
	}
	if v.Playback.Speaking {
		b.WriteString("[speaking]")
	}
	if text := strings.TrimSpace(v.Transcript.FinalizedText); text != "" {
		fmt.Fprintf(&b, " %s", text)
	}
	if v.Transcript.InterimText != "" {
		fmt.Fprintf(&b, " (%s)", v.Transcript.InterimText)
	}
	switch {
	case v.Translating:
		b.WriteString("\n  -> translating...")
	case v.Translation != nil:
		fmt.Fprintf(&b, "\n  -> %s (from %s): %s", v.Translation.TargetName, v.Translation.SourceName, v.Translation.Text)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "\n  ! %s", v.Error)
	}
	return b.String()
}

type console struct {
	ctx           context.Context
	manager       *session.Manager
	normalizer    *language.Normalizer
	defaultLocale string
	out           io.Writer
}

// run reads commands until quit or EOF.
func (c *console) run(in io.Reader) {
	fmt.Fprintln(c.out, helpText)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if !c.exec(sc.Text()) {
			return
		}
	}
}

// exec runs one command line and reports whether to keep reading.
func (c *console) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "start":
		locale := c.defaultLocale
		if len(args) > 0 {
			locale = args[0]
		}
		c.report(c.manager.StartCapture(c.ctx, locale))
	case "stop":
		c.manager.StopCapture()
	case "clear":
		c.report(c.manager.Clear())
	case "translate":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "usage: translate <code>")
			return true
		}
		go c.manager.Translate(c.ctx, args[0])
	case "text":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "usage: text <code> <text>")
			return true
		}
		go c.manager.TranslateText(c.ctx, strings.Join(args[1:], " "), args[0], "")
	case "speak":
		c.report(c.manager.Speak())
	case "stop-speaking":
		c.manager.StopSpeaking()
	case "toggle":
		c.report(c.manager.ToggleSpeak())
	case "view":
		fmt.Fprintln(c.out, formatView(c.manager.View()))
	case "languages":
		c.printLanguages()
	case "help":
		fmt.Fprintln(c.out, helpText)
	case "quit", "exit":
		return false
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", fields[0])
	}
	return true
}

func (c *console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "! %s\n", failure.Message(err))
	}
}

func (c *console) printLanguages() {
	fmt.Fprintln(c.out, "capture locales:")
	for _, tag := range c.normalizer.RecognitionTags() {
		fmt.Fprintf(c.out, "  %-6s %s\n", tag, c.normalizer.SourceDisplayName(tag))
	}
	fmt.Fprintln(c.out, "translation targets:")
	for _, e := range c.normalizer.Registry().Entries() {
		fmt.Fprintf(c.out, "  %-6s %s\n", e.Code, e.DisplayName)
	}
}
