package transcriber

import (
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.Recognizer {
		case config.RecognizerCloudSpeech:
			return NewCloudSpeechTranscriber(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		case config.RecognizerDeepgram:
			return NewDeepgramTranscriber(DeepgramConfig{
				APIKey:  c.DeepgramAPIKey,
				APIBase: c.DeepgramAPIBase,
				Model:   c.DeepgramModel,
			}), nil
		default:
			return nil, fmt.Errorf("unknown recognizer %q", c.Recognizer)
		}
	})
}
