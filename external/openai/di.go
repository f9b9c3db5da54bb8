package openai

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translator.Translator, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewTranslator(Config{
			APIKey:      c.OpenAIAPIKey,
			Model:       c.OpenAIModel,
			Temperature: c.OpenAITemperature,
			MaxTokens:   c.OpenAIMaxTokens,
		}), nil
	})
}
