package coverage

import (
	"cmp"
	"slices"
	"strings"
)

// Direction orders a ranking.
type Direction int

const (
	Descending Direction = iota + 1
	Ascending
)

// String returns "desc" or "asc".
func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// MarshalText encodes the zero Direction as "" so it round-trips through
// ParseDirection.
func (d Direction) MarshalText() ([]byte, error) {
	if d == 0 {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts anything ParseDirection does.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection accepts desc/asc spellings. The empty string yields 0 so the
// caller can fall back to an index default.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "desc", "descending", "high":
		return Descending, nil
	case "asc", "ascending", "low":
		return Ascending, nil
	default:
		return 0, invalidf("coverage: unknown ranking direction %q", s)
	}
}

// ScoredRecord is one scored subject: a grid cell or an infrastructure point.
// Seq is the subject's position in enumeration order.
type ScoredRecord struct {
	Seq   int            `json:"seq"`
	Cell  *CellAggregate `json:"cell,omitempty"`
	Load  *LoadRecord    `json:"load,omitempty"`
	Score float64        `json:"score"`
	Flag  bool           `json:"flag"`
}

// Location returns the point the record describes.
func (r ScoredRecord) Location() GeoPoint {
	if r.Cell != nil {
		return r.Cell.Center
	}
	if r.Load != nil {
		return r.Load.Point
	}
	return GeoPoint{}
}

// Ranking is an ordered record sequence with its top and bottom slices.
type Ranking struct {
	Direction Direction      `json:"direction"`
	Filtered  bool           `json:"filtered"`
	Records   []ScoredRecord `json:"records"`
	TopK      []ScoredRecord `json:"top_k"`
	BottomK   []ScoredRecord `json:"bottom_k"`
}

// Rank stably sorts records by score. Equal scores keep their input order.
// TopK is the first topK records of the ranked order and BottomK the last
// bottomK; both clamp to the length and may overlap.
func Rank(records []ScoredRecord, dir Direction, topK, bottomK int) (*Ranking, error) {
	if topK < 0 || bottomK < 0 {
		return nil, invalidf("coverage: top_k and bottom_k must be >= 0 (got %d, %d)", topK, bottomK)
	}
	if dir != Descending && dir != Ascending {
		return nil, invalidf("coverage: invalid ranking direction %d", dir)
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b ScoredRecord) int {
		if dir == Descending {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Score, b.Score)
	})
	return sliced(sorted, dir, topK, bottomK, false), nil
}

// Flagged keeps the records whose flag is set, in input order. No sort is
// applied; TopK and BottomK slice the filtered set.
func Flagged(records []ScoredRecord, topK, bottomK int) (*Ranking, error) {
	if topK < 0 || bottomK < 0 {
		return nil, invalidf("coverage: top_k and bottom_k must be >= 0 (got %d, %d)", topK, bottomK)
	}
	var kept []ScoredRecord
	for _, r := range records {
		if r.Flag {
			kept = append(kept, r)
		}
	}
	return sliced(kept, Descending, topK, bottomK, true), nil
}

func sliced(records []ScoredRecord, dir Direction, topK, bottomK int, filtered bool) *Ranking {
	n := len(records)
	return &Ranking{
		Direction: dir,
		Filtered:  filtered,
		Records:   records,
		TopK:      records[:min(topK, n)],
		BottomK:   records[n-min(bottomK, n):],
	}
}
