package session

import (
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/foxseedlab/tsuyaku/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*language.Normalizer, error) {
		return language.NewNormalizer(language.DefaultRegistry()), nil
	})
	do.Provide(injector, func(i do.Injector) (*translation.Orchestrator, error) {
		gw := do.MustInvoke[translation.Gateway](i)
		normalizer := do.MustInvoke[*language.Normalizer](i)
		return translation.NewOrchestrator(gw, normalizer), nil
	})
	do.Provide(injector, func(i do.Injector) (*Factory, error) {
		orchestrator := do.MustInvoke[*translation.Orchestrator](i)
		normalizer := do.MustInvoke[*language.Normalizer](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewFactory(orchestrator, normalizer, wh), nil
	})
}
