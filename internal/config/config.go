package config

import (
	"fmt"
	"time"
)

const (
	RecognizerCloudSpeech = "cloudspeech"
	RecognizerDeepgram    = "deepgram"
)

type Config struct {
	Env string

	GatewayAddr       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32
	OpenAIMaxTokens   int
	GatewayRateLimit  int
	DatabaseURL       string

	TranslationGatewayURL     string
	TranslationGatewayTimeout time.Duration
	TranslationWebhookURL     string

	RecognitionLocale          string
	Recognizer                 string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	DeepgramAPIKey             string
	DeepgramAPIBase            string
	DeepgramModel              string

	FFmpegCommand    string
	AudioInputFormat string
	AudioInputDevice string
	AudioSampleRate  int
	AudioChannels    int
	EspeakCommand    string

	DiscordToken   string
	DiscordGuildID string
}

// ValidateGateway leaves OPENAI_API_KEY optional: a gateway without a key
// still starts and answers every translation with a configuration error.
func (c *Config) ValidateGateway() error {
	if c.GatewayAddr == "" {
		return fmt.Errorf("GATEWAY_ADDR is required")
	}
	if c.OpenAIModel == "" {
		return fmt.Errorf("OPENAI_MODEL is required")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2, got %v", c.OpenAITemperature)
	}
	if c.OpenAIMaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAIMaxTokens)
	}
	if c.GatewayRateLimit < 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT must not be negative, got %d", c.GatewayRateLimit)
	}
	return nil
}

func (c *Config) ValidateInterpreter() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	if c.FFmpegCommand == "" {
		return fmt.Errorf("FFMPEG_COMMAND is required")
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	return nil
}

func (c *Config) ValidateBot() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	for _, req := range []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
	} {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	return nil
}

func (c *Config) validateClient() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.TranslationGatewayTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_GATEWAY_TIMEOUT must be positive, got %s", c.TranslationGatewayTimeout)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	fields := []requiredEnvField{
		{name: "TRANSLATION_GATEWAY_URL", value: c.TranslationGatewayURL},
		{name: "RECOGNITION_LOCALE", value: c.RecognitionLocale},
	}
	switch c.Recognizer {
	case RecognizerCloudSpeech:
		fields = append(fields,
			requiredEnvField{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
			requiredEnvField{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		)
	case RecognizerDeepgram:
		fields = append(fields, requiredEnvField{name: "DEEPGRAM_API_KEY", value: c.DeepgramAPIKey})
	default:
		fields = append(fields, requiredEnvField{name: "RECOGNIZER (cloudspeech or deepgram)", value: ""})
	}
	return fields
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
