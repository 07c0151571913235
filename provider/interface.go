// Package provider implements the model.Provider interface for the LLM
// backends dockhand can talk to.
//
// Three backends are supported through one factory:
//   - openai: any OpenAI-compatible endpoint (OpenAI, DeepSeek, OpenRouter)
//   - anthropic: the Claude API
//   - ollama: a local Ollama server
//
// The provider layer owns all type conversions between dockhand's
// provider-agnostic turns/tools and each SDK's wire types; nothing outside
// this package imports an LLM SDK for chat.
package provider

import "dockhand/config"

// Type identifies the provider implementation.
type Type string

const (
	TypeOpenAI    Type = "openai"
	TypeAnthropic Type = "anthropic"
	TypeOllama    Type = "ollama"
)

// FromProfile maps a registry profile's type string to a provider Type.
// Unknown strings pass through unchanged; the factory rejects them.
func FromProfile(p config.Profile) Type {
	switch p.Type {
	case "openai", "deepseek", "openrouter":
		return TypeOpenAI
	case "anthropic":
		return TypeAnthropic
	case "ollama":
		return TypeOllama
	default:
		return Type(p.Type)
	}
}
