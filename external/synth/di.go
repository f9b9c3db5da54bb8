package synth

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Espeak, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewEspeak(cfg.EspeakCommand), nil
	})
}
