//go:build opus

package audio

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/hraban/opus"
)

// maxQueuedFrames bounds per-speaker latency to one second of audio.
const maxQueuedFrames = 50

type OpusMixer struct {
	mu       sync.Mutex
	speakers map[string]*speaker
	closed   bool
}

type speaker struct {
	decoder *opus.Decoder
	frames  [][]int16
}

func NewOpusMixer() audio.Mixer {
	return &OpusMixer{speakers: make(map[string]*speaker)}
}

func (m *OpusMixer) WriteOpusPacket(speakerID string, packet []byte) {
	if len(packet) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	sp, ok := m.speakers[speakerID]
	if !ok {
		dec, err := opus.NewDecoder(discordSampleRate, discordChannels)
		if err != nil {
			slog.Warn("failed to create opus decoder", "error", err, "speaker_id", speakerID)
			return
		}
		sp = &speaker{decoder: dec}
		m.speakers[speakerID] = sp
	}

	pcm := make([]int16, samplesPerFrame)
	n, err := sp.decoder.Decode(packet, pcm)
	if err != nil || n == 0 {
		return
	}
	total := min(n*discordChannels, samplesPerFrame)
	if len(sp.frames) >= maxQueuedFrames {
		sp.frames = sp.frames[1:]
	}
	sp.frames = append(sp.frames, pcm[:total])
}

// ReadMixedPCM returns 0 when no speaker has a queued frame.
func (m *OpusMixer) ReadMixedPCM(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, nil
	}

	mixed := make([]int32, samplesPerFrame)
	hasFrame := false
	for _, sp := range m.speakers {
		if len(sp.frames) == 0 {
			continue
		}
		frame := sp.frames[0]
		sp.frames = sp.frames[1:]
		for i, v := range frame {
			mixed[i] += int32(v)
		}
		hasFrame = true
	}
	if !hasFrame {
		return 0, nil
	}

	samples := min(len(buf)/2, samplesPerFrame)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(clampPCM(mixed[i])))
	}
	return samples * 2, nil
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (m *OpusMixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.speakers = nil
}
