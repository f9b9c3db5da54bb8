package audio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/discord"
)

const (
	discordSampleRate = 48000
	discordChannels   = 2
	frameInterval     = 20 * time.Millisecond
	samplesPerFrame   = discordSampleRate * 20 * discordChannels / 1000
	frameBytes        = samplesPerFrame * 2
)

// DiscordSource turns the audio of a Discord voice connection into mixed
// PCM. Packets are received for the lifetime of the connection; sessions
// only decide when the mix is read.
type DiscordSource struct {
	voice    discord.VoiceConnection
	newMixer audio.MixerFactory

	startOnce sync.Once
	mu        sync.Mutex
	mixer     audio.Mixer
	packets   atomic.Int64
}

func NewDiscordSource(voice discord.VoiceConnection, newMixer audio.MixerFactory) *DiscordSource {
	return &DiscordSource{voice: voice, newMixer: newMixer}
}

func (s *DiscordSource) Format() audio.Format {
	return audio.Format{SampleRate: discordSampleRate, Channels: discordChannels}
}

func (s *DiscordSource) Start(ctx context.Context) (audio.Session, error) {
	s.startOnce.Do(func() {
		go s.voice.ReceiveAudio(func(speakerID string, packet []byte) {
			n := s.packets.Add(1)
			if n == 1 || n%500 == 0 {
				slog.Debug("received opus packet", "speaker_id", speakerID, "packet_bytes", len(packet), "total_packets", n)
			}
			s.mu.Lock()
			m := s.mixer
			s.mu.Unlock()
			if m != nil {
				m.WriteOpusPacket(speakerID, packet)
			}
		})
	})

	mixer := s.newMixer()
	s.mu.Lock()
	if s.mixer != nil {
		s.mixer.Close()
	}
	s.mixer = mixer
	s.mu.Unlock()

	sessCtx, cancel := context.WithCancel(ctx)
	return &discordSession{
		source: s,
		mixer:  mixer,
		ctx:    sessCtx,
		cancel: cancel,
		ticker: time.NewTicker(frameInterval),
	}, nil
}

func (s *DiscordSource) detach(m audio.Mixer) {
	s.mu.Lock()
	if s.mixer == m {
		s.mixer = nil
	}
	s.mu.Unlock()
	m.Close()
}

type discordSession struct {
	source *DiscordSource
	mixer  audio.Mixer
	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	once   sync.Once
}

// Read blocks until the next non-silent 20 ms frame.
func (d *discordSession) Read(p []byte) (int, error) {
	frame := make([]byte, frameBytes)
	for {
		select {
		case <-d.ctx.Done():
			return 0, io.EOF
		case <-d.ticker.C:
			n, err := d.mixer.ReadMixedPCM(frame)
			if err != nil {
				return 0, err
			}
			if n == 0 {
				continue
			}
			return copy(p, frame[:n]), nil
		}
	}
}

func (d *discordSession) Close() error {
	return d.Stop()
}

func (d *discordSession) Stop() error {
	d.once.Do(func() {
		d.cancel()
		d.ticker.Stop()
		d.source.detach(d.mixer)
	})
	return nil
}
