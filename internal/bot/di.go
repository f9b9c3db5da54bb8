package bot

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		factory := do.MustInvoke[*session.Factory](i)
		normalizer := do.MustInvoke[*language.Normalizer](i)
		newCapturer := do.MustInvoke[CapturerFactory](i)
		return NewBot(cfg.DiscordGuildID, cfg.RecognitionLocale, dc, factory, normalizer, newCapturer), nil
	})
}
