package assembly

import (
	"github.com/ime-usp-br/nova-europa-sub000/internal/discovery"
	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
	"github.com/ime-usp-br/nova-europa-sub000/internal/manifest"
	"github.com/ime-usp-br/nova-europa-sub000/internal/markers"
	"github.com/ime-usp-br/nova-europa-sub000/internal/tokens"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// decision is the outcome of the reduction policy for one non-essential file.
type decision struct {
	tier   Tier
	body   string
	tokens int
}

// decide applies the three-tier policy: full when the known size fits the
// remaining budget, else the manifest summary, else a truncated prefix.
// Unknown sizes never fit.
func decide(content string, entry manifest.Entry, remaining int) decision {
	if n, known := entry.Tokens(); known && n <= remaining {
		return decision{tier: TierFull, body: content, tokens: n}
	}
	if summary := entry.SummaryText(); summary != "" {
		return decision{tier: TierSummary, body: summary, tokens: tokens.Estimate(summary)}
	}
	allot := max(remaining, 0)
	return decision{
		tier:   TierTruncated,
		body:   tokens.Truncate(content, allot, markers.TruncationMarker),
		tokens: allot,
	}
}

// sizeOf returns the manifest token count when known, else an estimate.
func sizeOf(content string, entry manifest.Entry) int {
	if n, ok := entry.Tokens(); ok {
		return n
	}
	return tokens.Estimate(content)
}

// Assemble builds context blocks for units, in their given order.
//
// Units whose relative path is in exclude are dropped. Without both budget
// and manifest every unit is sent in full, with any manifest summary shown
// as an annotation. Otherwise essential units (flagged, or listed in ess)
// are sent in full and always charged, and each remaining unit gets the
// best tier that fits what is left of the budget.
func Assemble(units []*discovery.Unit, exclude map[string]struct{}, m *manifest.Manifest, budget *int, ess essentials.PathSet) []Block {
	units = discovery.Filter(units, exclude)
	if budget == nil || m == nil {
		return assembleFull(units, m)
	}

	limit := *budget
	consumed := 0
	slots := make([]*Block, len(units))

	isEssential := func(u *discovery.Unit) bool {
		return u.Essential || ess.Has(u.AbsPath)
	}

	for i, u := range units {
		if !isEssential(u) {
			continue
		}
		content, err := u.Content()
		if err != nil {
			logger.Warn().Err(err).Str("path", u.RelPath).Msg("assembly: skipping unreadable essential file")
			continue
		}
		entry, _ := m.Lookup(u.RelPath)
		n := sizeOf(content, entry)
		consumed += n
		slots[i] = &Block{RelPath: u.RelPath, Tier: TierFull, Essential: true, Body: content, Tokens: n}
	}
	if consumed > limit {
		logger.Warn().Int("tokens", consumed).Int("budget", limit).
			Msg("assembly: essential files alone exceed the budget")
	}

	for i, u := range units {
		if isEssential(u) {
			continue
		}
		content, err := u.Content()
		if err != nil {
			logger.Warn().Err(err).Str("path", u.RelPath).Msg("assembly: skipping unreadable file")
			continue
		}
		entry, _ := m.Lookup(u.RelPath)
		remaining := limit - consumed
		d := decide(content, entry, remaining)

		switch d.tier {
		case TierSummary:
			logger.Info().Str("path", u.RelPath).
				Int("original_tokens", sizeOf(content, entry)).
				Int("summary_tokens", d.tokens).
				Msg("assembly: using summary in place of full content")
		case TierTruncated:
			logger.Info().Str("path", u.RelPath).
				Int("original_tokens", sizeOf(content, entry)).
				Int("final_tokens", tokens.Estimate(d.body)).
				Int("remaining", remaining).
				Msg("assembly: truncated content to fit token limit")
		}

		consumed += d.tokens
		slots[i] = &Block{RelPath: u.RelPath, Tier: d.tier, Body: d.body, Tokens: d.tokens}
	}

	blocks := make([]Block, 0, len(slots))
	for _, b := range slots {
		if b != nil {
			blocks = append(blocks, *b)
		}
	}

	logger.Debug().Int("blocks", len(blocks)).Int("tokens", consumed).Int("budget", limit).
		Msg("assembly: budgeted context ready")
	return blocks
}

// assembleFull emits every readable unit unmodified.
func assembleFull(units []*discovery.Unit, m *manifest.Manifest) []Block {
	blocks := make([]Block, 0, len(units))
	for _, u := range units {
		content, err := u.Content()
		if err != nil {
			logger.Warn().Err(err).Str("path", u.RelPath).Msg("assembly: skipping unreadable file")
			continue
		}
		entry, _ := m.Lookup(u.RelPath)
		blocks = append(blocks, Block{
			RelPath:    u.RelPath,
			Tier:       TierFull,
			Body:       content,
			Annotation: entry.SummaryText(),
			Tokens:     sizeOf(content, entry),
		})
	}
	return blocks
}
