package risk

import (
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Signals is the boolean vector the policy scores.
type Signals struct {
	HasAcceptanceCriteria   bool `json:"has_acceptance_criteria" yaml:"has_acceptance_criteria"`
	HasExternalApprovalFlag bool `json:"has_external_approval_flag" yaml:"has_external_approval_flag"`
	IsAmbiguousScope        bool `json:"is_ambiguous_scope" yaml:"is_ambiguous_scope"`
	TouchesSecurityArea     bool `json:"touches_security_area" yaml:"touches_security_area"`
	HasChildren             bool `json:"has_children" yaml:"has_children"`
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	markdownPattern   = regexp.MustCompile("[#*_`>~|-]+")
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripMarkup removes HTML tags, entities and markdown punctuation and
// collapses whitespace. Tracker descriptions arrive as HTML or markdown.
func StripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = markdownPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractSignals derives the signal vector for item under p.
func ExtractSignals(item workitem.WorkItem, p Policy) Signals {
	description := StripMarkup(item.Description)
	haystack := strings.Join([]string{item.Title, description, strings.Join(item.Tags, " ")}, " ")

	return Signals{
		HasAcceptanceCriteria:   StripMarkup(item.AcceptanceCriteria) != "",
		HasExternalApprovalFlag: item.RequiresApproval || hasApprovalTag(item.Tags, p.ApprovalTags),
		IsAmbiguousScope: utf8.RuneCountInString(description) < p.MinDescriptionLength ||
			containsAny(description, p.VagueTerms, false),
		TouchesSecurityArea: containsAny(haystack, p.SecurityKeywords, true),
		HasChildren:         item.IsCompound(),
	}
}

func hasApprovalTag(tags, approval []string) bool {
	return slices.ContainsFunc(tags, func(tag string) bool {
		return slices.ContainsFunc(approval, func(a string) bool {
			return strings.EqualFold(strings.TrimSpace(tag), a)
		})
	})
}

// containsAny reports whether text contains any term as a whole word,
// case-insensitively. With plural a trailing "s" or "es" also matches, so
// "token" finds "tokens" but "auth" never finds "author".
func containsAny(text string, terms []string, plural bool) bool {
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if termPattern(term, plural).MatchString(text) {
			return true
		}
	}
	return false
}

func termPattern(term string, plural bool) *regexp.Regexp {
	suffix := ""
	if plural {
		suffix = "(?:e?s)?"
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + suffix + `\b`)
}
