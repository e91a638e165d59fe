package catalogue

import (
	"strings"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
)

// deriveLabel implements §4.2 rule 4: the first non-empty of aria-label,
// name, placeholder, textContent; failing that, a descendant image's alt
// text (or "Unlabeled Image" if the image has none); normalised and capped
// at 100 chars. Returns "" if no candidate yields anything — the caller
// drops the region entirely in that case.
func deriveLabel(el browser.RawElement) string {
	candidates := []string{el.AriaLabel, el.Name, el.Placeholder, el.TextContent}
	for _, c := range candidates {
		if norm := schemas.NormaliseTextSnippet(c); norm != "" {
			return truncateLabel(norm)
		}
	}

	if !el.HasImage {
		return ""
	}
	if alt := schemas.NormaliseTextSnippet(el.ImageAlt); alt != "" {
		return truncateLabel("Image: " + alt)
	}
	return "Unlabeled Image"
}

func truncateLabel(s string) string {
	if len(s) <= maxLabelChars {
		return s
	}
	return strings.TrimSpace(s[:maxLabelChars])
}
