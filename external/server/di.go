package server

import (
	"net/http"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*TranslateHandler, error) {
		c := do.MustInvoke[*config.Config](i)
		t := do.MustInvoke[translator.Translator](i)
		repo := do.MustInvoke[repository.Repository](i)
		// A nil Repository inside the interface would defeat the nil check.
		var audit repository.TranslationLogRepository
		if repo != nil {
			audit = repo
		}
		return NewTranslateHandler(t, language.DefaultRegistry(), audit, strings.TrimSpace(c.OpenAIAPIKey) != ""), nil
	})
	do.Provide(injector, func(i do.Injector) (*http.Server, error) {
		c := do.MustInvoke[*config.Config](i)
		h := do.MustInvoke[*TranslateHandler](i)
		return NewHTTPServer(c.GatewayAddr, NewRouter(h, c.GatewayRateLimit)), nil
	})
}
