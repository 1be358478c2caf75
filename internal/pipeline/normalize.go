package pipeline

import (
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

// SentinelPolicy decides how the "-" placeholder in sub1 is stored.
type SentinelPolicy int

const (
	// SentinelStrict stores "-" as null at every sub level.
	SentinelStrict SentinelPolicy = iota
	// SentinelLegacySub1 keeps "-" verbatim in sub1 for compatibility with
	// rows written before sub1 was normalized. Slug and name still skip it.
	SentinelLegacySub1
)

// Normalizer turns raw source records into destination rows.
type Normalizer struct {
	Policy SentinelPolicy
}

// Normalize deduplicates by source id (first occurrence wins, order kept)
// and derives name, slug and nullable fields. It is pure: the same input
// always yields the same output.
//
// Records without a usable id are passed through unchanged in position so
// the upserter can report them.
func (n Normalizer) Normalize(records []domain.SourceCategoryRecord) []domain.NormalizedCategory {
	seen := make(map[int64]struct{}, len(records))
	out := make([]domain.NormalizedCategory, 0, len(records))

	for _, rec := range records {
		if rec.SourceID > 0 {
			if _, dup := seen[rec.SourceID]; dup {
				continue
			}
			seen[rec.SourceID] = struct{}{}
		}
		out = append(out, n.normalizeOne(rec))
	}
	return out
}

// Normalize applies the default strict policy.
func Normalize(records []domain.SourceCategoryRecord) []domain.NormalizedCategory {
	return Normalizer{}.Normalize(records)
}

func (n Normalizer) normalizeOne(rec domain.SourceCategoryRecord) domain.NormalizedCategory {
	// sub4 is stored but never part of the path.
	levels := presentLevels(&rec.MainCategory, rec.Sub1, rec.Sub2, rec.Sub3)

	sub1 := nullSentinel(rec.Sub1)
	if n.Policy == SentinelLegacySub1 {
		sub1 = copyString(rec.Sub1)
	}

	image1 := nullEmpty(rec.Image1)

	return domain.NormalizedCategory{
		SourceID:     rec.SourceID,
		Name:         DisplayName(levels),
		Slug:         Slugify(levels),
		MainCategory: rec.MainCategory,
		Sub1:         sub1,
		Sub2:         nullSentinel(rec.Sub2),
		Sub3:         nullSentinel(rec.Sub3),
		Sub4:         nullSentinel(rec.Sub4),
		Image1:       image1,
		Image2:       nullEmpty(rec.Image2),
		Image3:       nullEmpty(rec.Image3),
		Image4:       nullEmpty(rec.Image4),
		Image:        copyString(image1),
		IsActive:     true,
		Position:     rec.SourceID,
	}
}

// presentLevels drops absent, empty and sentinel levels.
func presentLevels(levels ...*string) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		if l == nil || *l == "" || *l == domain.Sentinel {
			continue
		}
		out = append(out, *l)
	}
	return out
}

func nullSentinel(s *string) *string {
	if s == nil || *s == domain.Sentinel {
		return nil
	}
	return copyString(s)
}

func nullEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return copyString(s)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
