// Package ranking orders geocoder results by relevance to the caller.
//
// A result's score rewards the provider's confidence and penalizes distance
// from the bias point with a bounded term:
//
//	score = confidence - dkm/(dkm+1), dkm = distance_m / 1000
//
// Higher scores rank first. The penalty approaches 1 as distance grows, so
// a confident far result can still beat an unsure nearby one.
package ranking

import (
	"sort"
	"strings"
)

// MaxResults caps the ranked output of a single search.
const MaxResults = 50

// UnknownName labels results with neither a name nor a first address line.
const UnknownName = "Unknown"

// RawResult is one provider record. Every field is optional.
type RawResult struct {
	Name         *string
	AddressLine1 *string
	Formatted    *string
	Lat          *float64
	Lon          *float64
	PlaceID      *string
	Category     *string
	Confidence   *float64
	DistanceM    *float64
}

// RawBatch is a provider response. Status carries an in-band status code
// when the provider reports one in the body.
type RawBatch struct {
	Status  *int
	Results []RawResult
}

// Succeeded reports whether the batch carries usable results.
func (b RawBatch) Succeeded() bool {
	return b.Status == nil || (*b.Status >= 200 && *b.Status < 300)
}

// RankedResult is a scored, display-ready search result.
type RankedResult struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceID   string  `json:"place_id"`
	Category  string  `json:"category"`
	Score     float64 `json:"score"`
}

// Score combines provider confidence and distance in meters. Negative
// distances are treated as zero.
func Score(confidence, distanceM float64) float64 {
	if distanceM < 0 {
		distanceM = 0
	}
	dkm := distanceM / 1000
	return confidence - dkm/(dkm+1)
}

// Rank resolves, scores and orders a batch. Ties keep provider order. The
// result is never nil; a failed or empty batch yields an empty slice.
func Rank(batch RawBatch) []RankedResult {
	if !batch.Succeeded() || len(batch.Results) == 0 {
		return []RankedResult{}
	}

	ranked := make([]RankedResult, 0, len(batch.Results))
	for _, raw := range batch.Results {
		ranked = append(ranked, resolve(raw))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > MaxResults {
		ranked = ranked[:MaxResults]
	}
	return ranked
}

func resolve(raw RawResult) RankedResult {
	name := firstNonEmpty(raw.Name, raw.AddressLine1)
	if name == "" {
		name = UnknownName
	}
	return RankedResult{
		Name:      name,
		Address:   deref(raw.Formatted),
		Latitude:  derefFloat(raw.Lat),
		Longitude: derefFloat(raw.Lon),
		PlaceID:   deref(raw.PlaceID),
		Category:  deref(raw.Category),
		Score:     Score(derefFloat(raw.Confidence), derefFloat(raw.DistanceM)),
	}
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := strings.TrimSpace(deref(v)); s != "" {
			return s
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
