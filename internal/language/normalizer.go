package language

import (
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/failure"
)

// Recognition locales map many-to-one onto translation codes. Both
// Portuguese variants collapse to "pt".
var recognitionToCode = map[string]string{
	"en-US": "en",
	"es-ES": "es",
	"es-MX": "es",
	"fr-FR": "fr",
	"de-DE": "de",
	"zh-CN": "zh",
	"ja-JP": "ja",
	"hi-IN": "hi",
	"ar-SA": "ar",
	"ru-RU": "ru",
	"pt-BR": "pt",
	"pt-PT": "pt",
}

var codeToSynthesis = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"hi": "hi-IN",
	"ar": "ar-SA",
	"ru": "ru-RU",
	"pt": "pt-PT",
}

var recognitionOrder = []string{
	"en-US", "es-ES", "es-MX", "fr-FR", "de-DE", "zh-CN",
	"ja-JP", "hi-IN", "ar-SA", "ru-RU", "pt-BR", "pt-PT",
}

// Normalizer reconciles recognition locale tags, translation codes and
// synthesis locale tags. It holds no mutable state.
type Normalizer struct {
	registry    *Registry
	toCode      map[string]string
	toSynthesis map[string]string
}

func NewNormalizer(registry *Registry) *Normalizer {
	return &Normalizer{
		registry:    registry,
		toCode:      recognitionToCode,
		toSynthesis: codeToSynthesis,
	}
}

func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// ToSimpleCode never fails: an exact table hit wins, otherwise the base
// segment of the tag is returned as-is, known or not.
func (n *Normalizer) ToSimpleCode(tag string) string {
	if code, ok := n.toCode[tag]; ok {
		return code
	}
	return BaseOf(tag)
}

// ResolveSource maps a recognition tag to a registry code. An empty tag
// means "auto-detect" and resolves to "".
func (n *Normalizer) ResolveSource(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	code := n.ToSimpleCode(tag)
	if !n.registry.Has(code) {
		return "", failure.Newf(failure.UnsupportedLanguage, "source language %q", tag)
	}
	return code, nil
}

func (n *Normalizer) ToSynthesisTag(code string) (string, error) {
	tag, ok := n.toSynthesis[code]
	if !ok {
		return "", failure.Newf(failure.UnsupportedLanguage, "no speech voice locale for %q", code)
	}
	return tag, nil
}

// SourceDisplayName is the label shown for the capture language.
func (n *Normalizer) SourceDisplayName(tag string) string {
	if tag == "" {
		return ""
	}
	code := n.ToSimpleCode(tag)
	if e, ok := n.registry.Lookup(code); ok {
		return e.DisplayName
	}
	return tag
}

func (n *Normalizer) RecognitionTags() []string {
	return append([]string(nil), recognitionOrder...)
}

// BaseOf returns the segment before the first '-' or '_'.
func BaseOf(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}
