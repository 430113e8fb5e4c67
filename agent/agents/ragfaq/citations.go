package ragfaq

import (
	"strings"

	"github.com/naruemon-s/glowdesk/pkg/retrieval"
)

// BuildCitations collapses retrieved chunks into one citation per source,
// preserving first-seen order. Chunks with no usable source are skipped.
func BuildCitations(chunks []retrieval.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var out []string
	for _, c := range chunks {
		label := strings.TrimSpace(c.Title)
		if label == "" {
			label = strings.TrimSpace(c.Source)
		}
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
