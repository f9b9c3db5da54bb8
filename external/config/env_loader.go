package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/tsuyaku/internal/config"
)

type envConfig struct {
	Env string `env:"ENV" envDefault:"production"`

	GatewayAddr       string  `env:"GATEWAY_ADDR" envDefault:":8888"`
	OpenAIAPIKey      string  `env:"OPENAI_API_KEY"`
	OpenAIModel       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITemperature float32 `env:"OPENAI_TEMPERATURE" envDefault:"0.3"`
	OpenAIMaxTokens   int     `env:"OPENAI_MAX_TOKENS" envDefault:"1500"`
	GatewayRateLimit  int     `env:"GATEWAY_RATE_LIMIT" envDefault:"60"`
	DatabaseURL       string  `env:"DATABASE_URL"`

	TranslationGatewayURL     string        `env:"TRANSLATION_GATEWAY_URL" envDefault:"http://localhost:8888/translate"`
	TranslationGatewayTimeout time.Duration `env:"TRANSLATION_GATEWAY_TIMEOUT" envDefault:"30s"`
	TranslationWebhookURL     string        `env:"TRANSLATION_WEBHOOK_URL"`

	RecognitionLocale          string `env:"RECOGNITION_LOCALE" envDefault:"en-US"`
	Recognizer                 string `env:"RECOGNIZER" envDefault:"cloudspeech"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	DeepgramAPIKey             string `env:"DEEPGRAM_API_KEY"`
	DeepgramAPIBase            string `env:"DEEPGRAM_API_BASE" envDefault:"https://api.deepgram.com/v1"`
	DeepgramModel              string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`

	FFmpegCommand    string `env:"FFMPEG_COMMAND" envDefault:"ffmpeg"`
	AudioInputFormat string `env:"AUDIO_INPUT_FORMAT" envDefault:"pulse"`
	AudioInputDevice string `env:"AUDIO_INPUT_DEVICE" envDefault:"default"`
	AudioSampleRate  int    `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioChannels    int    `env:"AUDIO_CHANNELS" envDefault:"1"`
	EspeakCommand    string `env:"ESPEAK_COMMAND" envDefault:"espeak-ng"`

	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`
}

// Load parses the environment without validating it; each binary calls
// the validator that matches what it runs.
func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	return &internalconfig.Config{
		Env:                        raw.Env,
		GatewayAddr:                raw.GatewayAddr,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIModel:                raw.OpenAIModel,
		OpenAITemperature:          raw.OpenAITemperature,
		OpenAIMaxTokens:            raw.OpenAIMaxTokens,
		GatewayRateLimit:           raw.GatewayRateLimit,
		DatabaseURL:                raw.DatabaseURL,
		TranslationGatewayURL:      raw.TranslationGatewayURL,
		TranslationGatewayTimeout:  raw.TranslationGatewayTimeout,
		TranslationWebhookURL:      raw.TranslationWebhookURL,
		RecognitionLocale:          raw.RecognitionLocale,
		Recognizer:                 raw.Recognizer,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DeepgramAPIKey:             raw.DeepgramAPIKey,
		DeepgramAPIBase:            raw.DeepgramAPIBase,
		DeepgramModel:              raw.DeepgramModel,
		FFmpegCommand:              raw.FFmpegCommand,
		AudioInputFormat:           raw.AudioInputFormat,
		AudioInputDevice:           raw.AudioInputDevice,
		AudioSampleRate:            raw.AudioSampleRate,
		AudioChannels:              raw.AudioChannels,
		EspeakCommand:              raw.EspeakCommand,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
	}, nil
}
