package language

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Entry struct {
	Code        string
	DisplayName string
}

// Registry is the immutable set of languages the translation backend accepts.
type Registry struct {
	entries []Entry
	byCode  map[string]Entry
}

var defaultEntries = []Entry{
	{Code: "en", DisplayName: "English"},
	{Code: "es", DisplayName: "Spanish"},
	{Code: "fr", DisplayName: "French"},
	{Code: "de", DisplayName: "German"},
	{Code: "zh", DisplayName: "Chinese"},
	{Code: "ja", DisplayName: "Japanese"},
	{Code: "hi", DisplayName: "Hindi"},
	{Code: "ar", DisplayName: "Arabic"},
	{Code: "ru", DisplayName: "Russian"},
	{Code: "pt", DisplayName: "Portuguese"},
}

func NewRegistry(entries []Entry) (*Registry, error) {
	byCode := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Code) == "" {
			return nil, fmt.Errorf("language entry %q has an empty code", e.DisplayName)
		}
		if _, dup := byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate language code %q", e.Code)
		}
		byCode[e.Code] = e
	}
	return &Registry{
		entries: append([]Entry(nil), entries...),
		byCode:  byCode,
	}, nil
}

// DefaultRegistry returns the languages supported by the translation gateway.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultEntries)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(code string) (Entry, bool) {
	e, ok := r.byCode[code]
	return e, ok
}

func (r *Registry) Has(code string) bool {
	_, ok := r.byCode[code]
	return ok
}

// DisplayName falls back to the code itself for unknown languages.
func (r *Registry) DisplayName(code string) string {
	if e, ok := r.byCode[code]; ok {
		return e.DisplayName
	}
	return code
}

func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

func (r *Registry) Codes() []string {
	return lo.Map(r.entries, func(e Entry, _ int) string { return e.Code })
}
