package sanitize

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
)

// Sentinels returned in place of filtered content.
const (
	Blocked      = "[Güvenlik nedeniyle mesaj filtrelendi]"
	BlockedQuery = "[Güvenlik nedeniyle sorgu filtrelendi]"
)

// Per-flow input caps, in bytes.
const (
	MaxMessageLen = 2000
	MaxEmotionLen = 1000
	MaxQueryLen   = 1000
	MaxAnimalLen  = 500
)

var (
	ErrEmpty   = errors.New("empty message")
	ErrTooLong = errors.New("message exceeds length limit")
	ErrBlocked = errors.New("message matched content filter")
)

// mainPatterns guard the router entry point. The sub-flow list is the
// same minus <link>/<meta>, which only matter on the outer surface.
var mainPatterns = []string{
	`<script[^>]*>.*?</script>`,
	`javascript:`,
	`data:text/html`,
	`vbscript:`,
	`on\w+\s*=`,
	`<iframe[^>]*>`,
	`<object[^>]*>`,
	`<embed[^>]*>`,
	`<link[^>]*>`,
	`<meta[^>]*>`,
}

var subPatterns = mainPatterns[:8]

var whitespaceRe = regexp.MustCompile(`\s+`)

// Sanitizer normalizes and screens user input before it reaches any model
// or external API. Screening never returns a Go panic or exposes the
// offending content: a hit discards the input and yields a fixed sentinel.
type Sanitizer struct {
	logger  *slog.Logger
	onBlock func(pattern string)

	main []*regexp.Regexp
	sub  []*regexp.Regexp
}

func New(logger *slog.Logger) *Sanitizer {
	return &Sanitizer{
		logger: logger,
		main:   compilePatterns(mainPatterns),
		sub:    compilePatterns(subPatterns),
	}
}

// OnBlock registers a hook invoked with the pattern that fired whenever
// input is filtered. Used to feed the audit trail.
func (s *Sanitizer) OnBlock(fn func(pattern string)) { s.onBlock = fn }

// Clean validates and normalizes a router-entry message: trim, length cap,
// HTML escape, denylist scan, whitespace collapse. Empty input returns
// ErrEmpty, oversize input ErrTooLong; a denylist hit returns the Blocked
// sentinel together with ErrBlocked.
func (s *Sanitizer) Clean(text string, maxLen int) (string, error) {
	return s.clean(text, maxLen, s.main, Blocked)
}

// CleanSubFlow applies the tighter per-flow pattern list.
func (s *Sanitizer) CleanSubFlow(text string, maxLen int) (string, error) {
	return s.clean(text, maxLen, s.sub, Blocked)
}

// CleanQuery is CleanSubFlow with the retrieval-specific sentinel.
func (s *Sanitizer) CleanQuery(text string, maxLen int) (string, error) {
	return s.clean(text, maxLen, s.sub, BlockedQuery)
}

func (s *Sanitizer) clean(text string, maxLen int, patterns []*regexp.Regexp, sentinel string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if len(text) > maxLen {
		return "", fmt.Errorf("%w: %d > %d", ErrTooLong, len(text), maxLen)
	}

	escaped := html.EscapeString(trimmed)
	for _, re := range patterns {
		if re.MatchString(escaped) {
			s.logger.Warn("input blocked by content filter", "pattern", re.String())
			if s.onBlock != nil {
				s.onBlock(re.String())
			}
			return sentinel, ErrBlocked
		}
	}

	return whitespaceRe.ReplaceAllString(escaped, " "), nil
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		// (?is): the lists are matched case-insensitively and the
		// script-tag body may span lines.
		compiled = append(compiled, regexp.MustCompile(`(?is)`+p))
	}
	return compiled
}

// EstimateTokens approximates the token cost of a message as one token
// per four bytes, rounded down.
func EstimateTokens(text string) int { return len(text) / 4 }
