package reasoning

import (
	"regexp"
	"sync"
)

// Static pattern tables for model capability detection. Model identifiers are
// free-form vendor strings, so matching stays literal and centralized here
// instead of scattered through the compilers.
var (
	thinkingModels = regexp.MustCompile(`^claude-(3-7|opus-4|sonnet-4|haiku-4)|^gemini-2\.5|^gemini-[3-9]`)

	symbolicEffortModels = regexp.MustCompile(`^o[134](-mini|-preview)?|^gpt-5`)

	// Families that reject the tools field entirely.
	noToolModels = regexp.MustCompile(`^claude-(instant|2)|^gemini-1\.0`)

	// Families whose wire protocol mandates a thought signature on
	// function-call parts even when none was ever issued.
	signatureRequiredModels = regexp.MustCompile(`^gemini-[3-9]`)

	maxCompletionTokensModels = regexp.MustCompile(`^o[134]|^gpt-5`)
)

// SupportsThinking reports whether model accepts a numeric reasoning budget.
func SupportsThinking(model string) bool {
	return thinkingModels.MatchString(model)
}

// SupportsSymbolicEffort reports whether model takes reasoning effort as a
// fixed level instead of a token budget.
func SupportsSymbolicEffort(model string) bool {
	return symbolicEffortModels.MatchString(model)
}

// SupportsToolUse reports whether model accepts tool definitions.
func SupportsToolUse(model string) bool {
	return !noToolModels.MatchString(model)
}

// RequiresThoughtSignature reports whether model mandates the signature field
// on reasoning-bearing parts.
func RequiresThoughtSignature(model string) bool {
	return signatureRequiredModels.MatchString(model)
}

// UsesMaxCompletionTokens reports whether model takes max_completion_tokens
// in place of max_tokens.
func UsesMaxCompletionTokens(model string) bool {
	return maxCompletionTokensModels.MatchString(model)
}

// FlagSet is an append-only set of model identifiers discovered to support an
// optional feature out-of-band (e.g. a capability advertised by a provider's
// model listing). Concurrent duplicate inserts are harmless; entries are
// never removed.
type FlagSet struct {
	flags sync.Map
}

func (s *FlagSet) Mark(model string) {
	s.flags.Store(model, struct{}{})
}

func (s *FlagSet) Has(model string) bool {
	_, ok := s.flags.Load(model)
	return ok
}

// WebSearchCapable collects models confirmed to accept the web search tool.
var WebSearchCapable FlagSet
