package tagging

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// NormalizeTag trims surrounding whitespace and applies Unicode NFC
// normalization so that visually identical tags compare equal regardless
// of how the platform or an operator composed them.
func NormalizeTag(tag string) string {
	return norm.NFC.String(strings.TrimSpace(tag))
}

// tagsEqual reports whether two tags match, case-insensitively, after NFC
// normalization. Storage stays case-preserving; only comparison folds.
func tagsEqual(a, b string) bool {
	return strings.EqualFold(norm.NFC.String(a), norm.NFC.String(b))
}

// hasTag reports whether tags contains target (case-insensitive).
func hasTag(tags []string, target string) bool {
	for _, t := range tags {
		if tagsEqual(t, target) {
			return true
		}
	}

	return false
}

// PlanMutation partitions products into those needing mutation and those
// already satisfying the target state, and builds one MutationRecord per
// product that needs changing. For apply, the tag is appended at the end
// of the product's existing tags; for remove, all case-insensitive matches
// are dropped. Other tags keep their original order either way.
//
// The plan guarantees at most one mutation per product per run, and
// repeated runs with the same tag converge: planning again over the
// updated tag sets yields zero records.
func PlanMutation(products []admin.Product, tag string, action Action) ([]MutationRecord, PreRunSummary) {
	tag = NormalizeTag(tag)

	var records []MutationRecord

	skipped := 0

	for _, p := range products {
		switch action {
		case ActionApply:
			if hasTag(p.Tags, tag) {
				skipped++
				continue
			}

			tags := make([]string, 0, len(p.Tags)+1)
			tags = append(tags, p.Tags...)
			tags = append(tags, tag)
			records = append(records, MutationRecord{ProductID: p.ID, Tags: tags})

		case ActionRemove:
			if !hasTag(p.Tags, tag) {
				skipped++
				continue
			}

			tags := make([]string, 0, len(p.Tags))
			for _, t := range p.Tags {
				if !tagsEqual(t, tag) {
					tags = append(tags, t)
				}
			}

			records = append(records, MutationRecord{ProductID: p.ID, Tags: tags})

		default:
			// Unknown action plans nothing. Counting into skipped keeps
			// Total == Updated + Skipped regardless of input.
			skipped++
		}
	}

	pre := PreRunSummary{
		Updated: len(records),
		Skipped: skipped,
		Failed:  0,
		Total:   len(products),
		Tag:     tag,
		Action:  action,
	}

	return records, pre
}
