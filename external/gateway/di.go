package gateway

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translation.Gateway, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPGateway(c.TranslationGatewayURL, c.TranslationGatewayTimeout), nil
	})
}
