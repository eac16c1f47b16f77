// Package security checks provider API keys and keeps secrets out of
// output, logs and error text.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// MinAPIKeyLength is the shortest key any hosted provider issues.
const MinAPIKeyLength = 20

// localProviders run on the user's machine and take no API key.
var localProviders = []string{"ollama"}

type keyShape struct {
	prefix  string
	pattern *regexp.Regexp
}

// keyShapes describes the key format of the hosted providers. Hosted
// providers missing here only get the length check.
var keyShapes = map[string]keyShape{
	"openai":    {"sk-", regexp.MustCompile(`^sk-[A-Za-z0-9_-]{20,}$`)},
	"deepseek":  {"sk-", regexp.MustCompile(`^sk-[A-Za-z0-9]{20,}$`)},
	"anthropic": {"sk-ant-", regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{20,}$`)},
}

// IsLocalProvider reports whether provider keeps diffs on the machine.
func IsLocalProvider(provider string) bool {
	return slices.Contains(localProviders, provider)
}

// ValidateAPIKeyFormat checks that apiKey looks like a key issued by provider.
// A failure usually means a key was pasted into the wrong provider slot.
func ValidateAPIKeyFormat(provider, apiKey string) error {
	if IsLocalProvider(provider) {
		return nil
	}

	switch {
	case apiKey == "":
		return fmt.Errorf("API key is required for %s provider", provider)
	case len(apiKey) < MinAPIKeyLength:
		return errors.New("API key appears to be invalid (too short)")
	}

	if shape, ok := keyShapes[provider]; ok && !shape.pattern.MatchString(apiKey) {
		return fmt.Errorf("API key format appears invalid for %s provider (expected format: %s...)", provider, shape.prefix)
	}
	return nil
}

// secretPatterns are applied in order; the bare key pattern runs first so
// "api_key=sk-..." still ends up fully masked.
var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`), "sk-****"},
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]+`), "Bearer ****"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|api_secret|secret[_-]?key|x-api-key)\s*[:=]\s*["']?[A-Za-z0-9._*-]+["']?`), "$1=****"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*["']?[^\s"']+["']?`), "$1=****"},
}

// SanitizeForLogging replaces API keys, bearer tokens and password
// assignments in s. Provider error bodies pass through it before display.
func SanitizeForLogging(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// FirstUseWarning is the warning message displayed on first use.
const FirstUseWarning = `
⚠️  IMPORTANT SECURITY NOTICE ⚠️

commitwise sends your staged git diff content to external AI services
(OpenAI, DeepSeek, Anthropic, or other configured providers) to generate
commit messages.

This means your code changes will be transmitted over the internet to third-party
servers. Please ensure you:

1. Do not stage sensitive information (API keys, passwords, secrets)
2. Review your staged changes before running commitwise
3. Consider using a local AI provider (Ollama) for sensitive projects

For more information, see: https://github.com/commitwise/commitwise#security

`

// FirstUseAcknowledgment is the message shown after user acknowledges the warning.
const FirstUseAcknowledgment = "Thank you for acknowledging the security notice. This warning will not be shown again."
