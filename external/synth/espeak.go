package synth

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	textlang "golang.org/x/text/language"

	"github.com/foxseedlab/tsuyaku/internal/playback"
)

const (
	defaultEspeakCommand = "espeak-ng"
	espeakDefaultWPM     = 175
	espeakDefaultPitch   = 50
	espeakDefaultAmp     = 100
	signalBuffer         = 16
)

// Espeak speaks utterances by running one espeak-ng process each.
type Espeak struct {
	command string
	signals chan playback.Signal

	mu      sync.Mutex
	voices  []playback.Voice
	current *utterance
}

type utterance struct {
	id       string
	cmd      *exec.Cmd
	canceled bool
}

func NewEspeak(command string) *Espeak {
	if strings.TrimSpace(command) == "" {
		command = defaultEspeakCommand
	}
	return &Espeak{command: command, signals: make(chan playback.Signal, signalBuffer)}
}

// LoadVoices lists the installed voices in the background and signals
// VoicesChanged once they are known.
func (e *Espeak) LoadVoices(ctx context.Context) {
	go func() {
		out, err := exec.CommandContext(ctx, e.command, "--voices").Output()
		if err != nil {
			slog.Warn("failed to list espeak voices", "error", err, "command", e.command)
			return
		}
		voices := parseVoices(out)
		e.mu.Lock()
		e.voices = voices
		e.mu.Unlock()
		slog.Debug("espeak voices loaded", "count", len(voices))
		e.signals <- playback.Signal{Kind: playback.SignalVoicesChanged}
	}()
}

func (e *Espeak) Voices() []playback.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]playback.Voice(nil), e.voices...)
}

func (e *Espeak) Signals() <-chan playback.Signal {
	return e.signals
}

func (e *Espeak) Speak(u playback.Utterance) error {
	cmd := exec.Command(e.command, speakArgs(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.command, err)
	}
	cur := &utterance{id: u.ID, cmd: cmd}
	e.current = cur

	go e.wait(cur, &stderr)
	return nil
}

func (e *Espeak) wait(cur *utterance, stderr *bytes.Buffer) {
	e.signals <- playback.Signal{Kind: playback.SignalStarted, UtteranceID: cur.id}
	err := cur.cmd.Wait()

	e.mu.Lock()
	canceled := cur.canceled
	if e.current == cur {
		e.current = nil
	}
	e.mu.Unlock()

	switch {
	case canceled:
		e.signals <- playback.Signal{Kind: playback.SignalEnded, UtteranceID: cur.id}
	case err != nil:
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		e.signals <- playback.Signal{Kind: playback.SignalError, UtteranceID: cur.id, Err: err}
	default:
		e.signals <- playback.Signal{Kind: playback.SignalEnded, UtteranceID: cur.id}
	}
}

// Cancel kills the running utterance, if any.
func (e *Espeak) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
}

func (e *Espeak) cancelLocked() {
	if e.current == nil {
		return
	}
	e.current.canceled = true
	if e.current.cmd.Process != nil {
		_ = e.current.cmd.Process.Kill()
	}
	e.current = nil
}

func speakArgs(u playback.Utterance) []string {
	voice := strings.ToLower(u.Lang)
	if u.Voice != nil && u.Voice.Name != "" {
		voice = u.Voice.Name
	}
	args := []string{
		"-s", strconv.Itoa(scale(u.Rate, espeakDefaultWPM, 80, 450)),
		"-p", strconv.Itoa(scale(u.Pitch, espeakDefaultPitch, 0, 99)),
		"-a", strconv.Itoa(scale(u.Volume, espeakDefaultAmp, 0, 200)),
	}
	if voice != "" {
		args = append([]string{"-v", voice}, args...)
	}
	return append(args, "--stdin")
}

// scale maps a 1.0-is-normal factor onto espeak's integer range.
func scale(factor float64, normal, floor, ceil int) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(math.Round(factor * float64(normal)))
	return min(max(v, floor), ceil)
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 3)
func parseVoices(out []byte) []playback.Voice {
	var voices []playback.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		voices = append(voices, playback.Voice{
			Name: fields[1],
			Lang: normalizeVoiceLang(fields[1]),
		})
	}
	voices = lo.UniqBy(voices, func(v playback.Voice) string { return v.Name })
	if len(voices) > 0 {
		if i := lo.IndexOf(lo.Map(voices, func(v playback.Voice, _ int) string { return v.Lang }), "en-US"); i >= 0 {
			voices[i].Default = true
		}
	}
	return voices
}

func normalizeVoiceLang(lang string) string {
	tag, err := textlang.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}
