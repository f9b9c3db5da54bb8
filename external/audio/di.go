package audio

import (
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.MixerFactory(func() audio.Mixer {
		return NewOpusMixer()
	}))
	do.Provide(injector, func(i do.Injector) (*FFmpegSource, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewFFmpegSource(FFmpegConfig{
			Command:     cfg.FFmpegCommand,
			InputFormat: cfg.AudioInputFormat,
			InputDevice: cfg.AudioInputDevice,
			SampleRate:  cfg.AudioSampleRate,
			Channels:    cfg.AudioChannels,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.Source, error) {
		return do.MustInvoke[*FFmpegSource](i), nil
	})
}
