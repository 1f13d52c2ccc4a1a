// Package sanitizer cleans user-submitted comment markup before it is stored.
// The raw text, the cleaned rendering and the policy revision are always returned together
// so a stored comment can be re-sanitized or audited later.
package sanitizer

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rivo/uniseg"
	"golang.org/x/net/html"
)

const (
	// PolicyVersion identifies the allowlist below. Bump it whenever the policy changes.
	PolicyVersion = "comment-html/1"

	// MaxContentGraphemes is the maximum comment length after trimming
	MaxContentGraphemes = 10000
)

// ValidationKind classifies why content was rejected
type ValidationKind string

const (
	KindEmptyContent ValidationKind = "EMPTY_CONTENT"
	KindTooLong      ValidationKind = "TOO_LONG"
	KindInvalidUTF8  ValidationKind = "INVALID_ENCODING"
)

// ValidationError is returned when content cannot be accepted at all
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Result is the output of a successful Process call
type Result struct {
	Sanitized  string
	Original   string
	Version    string
	IsModified bool
}

// Sanitizer applies the comment HTML policy. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds a Sanitizer with the comment allowlist
func New() *Sanitizer {
	return &Sanitizer{policy: newCommentPolicy()}
}

func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br",
		"b", "strong", "i", "em", "u",
		"code", "pre", "blockquote",
		"ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)

	// Links: only absolute URLs with an allowed scheme survive. javascript: and data:
	// are not in the scheme list, so their href is dropped along with the anchor.
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto", "ftp")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)

	// Every surviving http(s)/ftp link has a host, so all of them open in a new tab
	// with rel="noreferrer noopener". mailto: links get rel="noreferrer" only.
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return p
}

// Process validates and sanitizes raw comment text
func (s *Sanitizer) Process(raw string) (*Result, error) {
	if !utf8.ValidString(raw) {
		return nil, &ValidationError{Kind: KindInvalidUTF8, Message: "Comment content must be valid UTF-8"}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ValidationError{Kind: KindEmptyContent, Message: "Comment content is required"}
	}
	if uniseg.GraphemeClusterCount(trimmed) > MaxContentGraphemes {
		return nil, &ValidationError{Kind: KindTooLong, Message: "Comment content exceeds 10000 characters"}
	}

	cleaned := s.policy.Sanitize(trimmed)

	return &Result{
		Sanitized:  cleaned,
		Original:   raw,
		Version:    PolicyVersion,
		IsModified: html.UnescapeString(cleaned) != html.UnescapeString(trimmed),
	}, nil
}
