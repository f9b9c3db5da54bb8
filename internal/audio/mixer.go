package audio

// Mixer decodes Opus packets from several speakers and mixes them down to
// one 48 kHz stereo s16le stream, one 20 ms frame per read.
type Mixer interface {
	WriteOpusPacket(speakerID string, opus []byte)
	ReadMixedPCM(buf []byte) (int, error)
	Close()
}

type MixerFactory func() Mixer
