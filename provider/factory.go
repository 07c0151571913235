package provider

import (
	"fmt"

	"dockhand/config"
	"dockhand/model"
)

// New creates a provider from a registry profile.
//
// Returns an error if the profile's type is unknown or the backend
// constructor rejects the configuration (e.g. a missing API key).
func New(p config.Profile) (model.Provider, error) {
	switch FromProfile(p) {
	case TypeOpenAI:
		return NewOpenAIProvider(p.BaseURL, p.APIKey, p.Model)
	case TypeAnthropic:
		return NewAnthropicProvider(p.BaseURL, p.APIKey, p.Model)
	case TypeOllama:
		return NewOllamaProvider(p.BaseURL, p.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", p.Type)
	}
}
