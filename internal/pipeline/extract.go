// Package pipeline orchestrates the lead ingestion workflow: extract,
// gate, synchronize, notify, mark read.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/urbeneye/leadsync/internal/model"
)

// Extraction rules. Each rule is independent and operates on either the
// subject or the normalized body, never both.
var (
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	newlineRe = regexp.MustCompile(`\n+`)

	// Mobile/business numbers in Spain start with 6, 7 or 9 and have 9
	// digits. Candidates may carry spaces, dots or hyphens between digits.
	phoneCandidateRe = regexp.MustCompile(`[679][\d\s.\-]{8,}`)
	phoneSepRe       = regexp.MustCompile(`[\s.\-]`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Idealista notification subject: "Nuevo mensaje de <name> sobre tu
	// inmueble, <address>" with an optional "con ref: <ref>," fragment.
	nameRe        = regexp.MustCompile(`(?i)nuevo mensaje de (.+?) sobre`)
	refInternaRe  = regexp.MustCompile(`(?i)ref\.?\s*interna\s*([^,]+)`)
	refColonRe    = regexp.MustCompile(`(?i)con ref: ([^,]+)`)
	refFragmentRe = regexp.MustCompile(`(?i)con ref: [^,]+,`)
	addressRe     = regexp.MustCompile(`(?i)sobre tu inmueble, (.+)$`)

	listingCodeRe = regexp.MustCompile(`(?i)c[oó]digo del anuncio:\s*(\d+)`)
)

// Extract parses one notification email into a Lead. It never fails: in
// the worst case every field except Message stays empty. listingBaseURL is
// the prefix the listing code is appended to.
func Extract(subject, bodyHTML, listingBaseURL string) model.Lead {
	text := NormalizeBody(bodyHTML)

	lead := model.Lead{
		CustomerName:     extractName(subject),
		CustomerEmail:    extractEmail(text),
		CustomerPhone:    extractPhone(text),
		ListingReference: extractReference(subject),
		ListingAddress:   extractAddress(subject),
		Message:          text,
	}
	if code := extractListingCode(text); code != "" {
		lead.ListingURL = listingBaseURL + code
	}
	return lead
}

// NormalizeBody turns an HTML body into the plain-text working buffer:
// every tag becomes a newline, runs of newlines collapse into one, and the
// result is trimmed.
func NormalizeBody(bodyHTML string) string {
	text := tagRe.ReplaceAllString(bodyHTML, "\n")
	text = newlineRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// extractPhone returns the first digit run that cleans to exactly 9 digits
// with a leading digit in {6,7,9}. Candidates are tried in appearance
// order; the 9-digit constraint is what keeps dates and listing codes out.
func extractPhone(text string) string {
	for _, candidate := range phoneCandidateRe.FindAllString(text, -1) {
		cleaned := phoneSepRe.ReplaceAllString(candidate, "")
		if len(cleaned) == 9 {
			return cleaned
		}
	}
	return ""
}

// extractEmail returns the first email-shaped token in the text.
func extractEmail(text string) string {
	return emailRe.FindString(text)
}

// extractName captures the sender name from the subject template. The name
// is never taken from the body.
func extractName(subject string) string {
	if m := nameRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractReference tries the "ref interna" form first, then "con ref:".
// Either capture runs to the next comma or the end of the subject.
func extractReference(subject string) string {
	if m := refInternaRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := refColonRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractListingCode returns the numeric listing code announced in the
// body, or "".
func extractListingCode(text string) string {
	if m := listingCodeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractAddress captures the address tail of the subject, with any
// embedded reference fragment removed.
func extractAddress(subject string) string {
	m := addressRe.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(refFragmentRe.ReplaceAllString(m[1], ""))
}
