// Package assembly turns candidate files, manifest metadata and the essential
// set into the ordered context blocks sent to the model, degrading
// non-essential files to fit a token budget.
package assembly

import (
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/internal/markers"
)

// Tier is the representation chosen for a file's content.
type Tier int

const (
	// TierFull sends the file unmodified.
	TierFull Tier = iota
	// TierSummary replaces the content with the manifest summary.
	TierSummary
	// TierTruncated sends a cut prefix followed by the truncation marker.
	TierTruncated
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierSummary:
		return "summary"
	case TierTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Block is one file's chosen representation.
type Block struct {
	RelPath   string
	Tier      Tier
	Essential bool
	Body      string
	// Annotation is an informational summary shown above a full body when no
	// budget reduction is active.
	Annotation string
	// Tokens is what the block was charged against the budget.
	Tokens int
}

// String renders the block in its wire format.
func (b Block) String() string {
	if b.Essential {
		return markers.Essential(b.RelPath, b.Body)
	}
	body := b.Body
	if b.Annotation != "" {
		body = markers.Annotated(b.Annotation, body)
	}
	return markers.File(b.RelPath, body)
}

// Render joins rendered blocks with a blank line.
func Render(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n")
}

// Stats counts blocks per tier.
type Stats struct {
	Blocks     int `json:"blocks"`
	Essential  int `json:"essential"`
	Full       int `json:"full"`
	Summarized int `json:"summarized"`
	Truncated  int `json:"truncated"`
	Tokens     int `json:"tokens"`
}

// Summarize computes per-tier counts and the total charged tokens.
func Summarize(blocks []Block) Stats {
	s := Stats{Blocks: len(blocks)}
	for _, b := range blocks {
		s.Tokens += b.Tokens
		if b.Essential {
			s.Essential++
			continue
		}
		switch b.Tier {
		case TierFull:
			s.Full++
		case TierSummary:
			s.Summarized++
		case TierTruncated:
			s.Truncated++
		}
	}
	return s
}
