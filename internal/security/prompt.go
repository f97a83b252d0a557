// Package security screens inbound questions for prompt injection
// attempts before they reach the completion provider.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// PromptInjectionResult reports what a screening pass detected.
type PromptInjectionResult struct {
	Safe     bool
	Patterns []string // matched pattern sources, empty when safe
}

// PromptValidator detects common prompt injection patterns in user
// questions. Detection is advisory: the retrieval context is already
// framed as untrusted in the system prompt, so a match is logged rather
// than blocking the request. No filter of this kind is complete;
// homoglyph substitutions in particular pass through undetected.
type PromptValidator struct {
	patterns []*regexp.Regexp
}

var injectionPatterns = []*regexp.Regexp{
	// Override attempts against earlier instructions.
	regexp.MustCompile(`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?|context)`),

	// Role reassignment.
	regexp.MustCompile(`(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`),
	regexp.MustCompile(`(?i)^you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`),

	// Injected instruction framing.
	regexp.MustCompile(`(?i)^\s*(important|critical|urgent|system)\s*:\s*`),
	regexp.MustCompile(`(?i)^new\s+(instruction|task|rule)\s*:`),
	regexp.MustCompile(`(?i)</?(system|instruction|prompt)>`),

	// Known jailbreak phrasing.
	regexp.MustCompile(`(?i)do\s+anything\s+now`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)bypass\s+(safety|filter|restrictions?)`),
}

// NewPromptValidator creates a PromptValidator with the default patterns.
func NewPromptValidator() *PromptValidator {
	return &PromptValidator{patterns: injectionPatterns}
}

// Validate screens input against the injection patterns.
func (v *PromptValidator) Validate(input string) PromptInjectionResult {
	normalized := normalizeInput(input)

	var detected []string
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			detected = append(detected, re.String())
		}
	}
	return PromptInjectionResult{Safe: len(detected) == 0, Patterns: detected}
}

// normalizeInput strips zero-width and combining characters that could
// evade matching and collapses whitespace runs.
func normalizeInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
