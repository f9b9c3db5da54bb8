package capture

import (
	extaudio "github.com/foxseedlab/tsuyaku/external/audio"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/bot"
	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
	"github.com/samber/do/v2"
)

// RegisterDI binds the capturer to whichever audio.Source the binary
// provides.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcription.Capturer, error) {
		source := do.MustInvoke[audio.Source](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		return NewCapturer(source, stt), nil
	})
}

// RegisterDiscordDI provides a capturer per voice connection, reading the
// mixed audio of everyone in the channel.
func RegisterDiscordDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (bot.CapturerFactory, error) {
		newMixer := do.MustInvoke[audio.MixerFactory](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		return func(voice discord.VoiceConnection) transcription.Capturer {
			return NewCapturer(extaudio.NewDiscordSource(voice, newMixer), stt)
		}, nil
	})
}
