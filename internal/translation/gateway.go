package translation

import "context"

// GatewayRequest is the JSON body accepted by the translation gateway.
type GatewayRequest struct {
	Text               string  `json:"text"`
	TargetLanguageCode string  `json:"targetLanguageCode"`
	SourceLanguageCode *string `json:"sourceLanguageCode"`
}

// GatewayResponse covers every body the gateway returns. Success responses
// fill the language fields, failures fill Error and sometimes Message.
type GatewayResponse struct {
	Success            bool   `json:"success"`
	TranslatedText     string `json:"translatedText,omitempty"`
	TargetLanguage     string `json:"targetLanguage,omitempty"`
	SourceLanguage     string `json:"sourceLanguage,omitempty"`
	TargetLanguageCode string `json:"targetLanguageCode,omitempty"`
	Message            string `json:"message,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Gateway returns a non-nil error only for transport-level failures.
// Backend rejections come back as a response with Success=false.
type Gateway interface {
	Translate(ctx context.Context, req GatewayRequest) (GatewayResponse, error)
}
