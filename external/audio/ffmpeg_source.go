package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

const (
	ffmpegStartupGrace = 250 * time.Millisecond
	ffmpegStopTimeout  = 1200 * time.Millisecond
)

type FFmpegConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// FFmpegSource captures the local microphone by running ffmpeg and reading
// raw s16le PCM from its stdout.
type FFmpegSource struct {
	cfg FFmpegConfig
}

func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFmpegSource{cfg: cfg}
}

func (s *FFmpegSource) Format() audio.Format {
	return audio.Format{SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}
}

func (s *FFmpegSource) args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

func (s *FFmpegSource) Start(ctx context.Context) (audio.Session, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A missing device makes ffmpeg exit almost immediately.
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(ffmpegStartupGrace):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type ffmpegSession struct {
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg and kills it if it does not exit in time.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		var err error
		select {
		case err = <-s.waitErr:
		case <-time.After(ffmpegStopTimeout):
			_ = s.process.Kill()
			err = <-s.waitErr
		}
		s.stopErr = ignoreExitError(err)

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, bytes.TrimSpace(s.stderr.Bytes()))
		}
	})
	return s.stopErr
}

func ignoreExitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
