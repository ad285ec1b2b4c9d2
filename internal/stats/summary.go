package stats

import (
	"sort"

	"github.com/hpungsan/wrench/internal/repair"
)

// OutcomeCount is one row of the outcome table.
type OutcomeCount struct {
	Outcome repair.Outcome `json:"outcome"`
	Count   int            `json:"count"`
}

// CategoryCount is one row of the failure category table.
type CategoryCount struct {
	Category repair.FailureCategory `json:"category"`
	Count    int                    `json:"count"`
}

// Source is one video the records were extracted from.
type Source struct {
	VideoURL   string `json:"video_url"`
	VideoTitle string `json:"video_title"`
}

// Summary is the headline numbers for a record set.
type Summary struct {
	Records     int     `json:"records"`
	Videos      int     `json:"videos"`
	Brands      int     `json:"brands"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// OutcomeCounts counts records per outcome. Every outcome appears, in
// display order, even when its count is zero.
func OutcomeCounts(records []repair.Record) []OutcomeCount {
	counts := map[repair.Outcome]int{}
	for _, r := range records {
		counts[r.Outcome]++
	}
	out := make([]OutcomeCount, 0, len(repair.Outcomes()))
	for _, o := range repair.Outcomes() {
		out = append(out, OutcomeCount{Outcome: o, Count: counts[o]})
	}
	return out
}

// FailureCategoryCounts counts failed records per category, in category
// priority order. Categories with no records are omitted.
func FailureCategoryCounts(records []repair.Record) []CategoryCount {
	counts := map[repair.FailureCategory]int{}
	for _, r := range records {
		if r.Outcome == repair.OutcomeFailed {
			counts[r.FailureCategory]++
		}
	}
	out := []CategoryCount{}
	for _, c := range repair.FailureCategories() {
		if n := counts[c]; n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	return out
}

// Summarize computes headline numbers. Videos counts distinct non-empty
// video URLs.
func Summarize(records []repair.Record) Summary {
	s := Summary{Records: len(records)}
	videos := map[string]bool{}
	brands := map[string]bool{}
	for _, r := range records {
		if r.VideoURL != "" {
			videos[r.VideoURL] = true
		}
		if r.Brand != nil {
			brands[*r.Brand] = true
		}
		switch r.Outcome {
		case repair.OutcomeSuccessful:
			s.Successful++
		case repair.OutcomeFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	s.Videos = len(videos)
	s.Brands = len(brands)
	s.SuccessRate = SuccessRate(s.Successful, s.Failed)
	return s
}

// Sources lists the distinct (URL, title) pairs behind the records, ordered
// by title and then URL. Records without a video URL are left out.
func Sources(records []repair.Record) []Source {
	seen := map[Source]bool{}
	out := []Source{}
	for _, r := range records {
		if r.VideoURL == "" {
			continue
		}
		src := Source{VideoURL: r.VideoURL, VideoTitle: r.VideoTitle}
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VideoTitle != out[j].VideoTitle {
			return out[i].VideoTitle < out[j].VideoTitle
		}
		return out[i].VideoURL < out[j].VideoURL
	})
	return out
}
