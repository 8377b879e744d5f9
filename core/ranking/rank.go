package ranking

import "sort"

type (
	Entry struct {
		StudentID string
		Average   float64
	}

	Placement struct {
		StudentID string  `json:"student_id"`
		Average   float64 `json:"average"`
		Rank      int     `json:"rank"`
	}
)

// Rank orders the cohort by descending average; rank is the 1-based position.
// Equal averages keep their incoming order and get distinct consecutive ranks.
func Rank(cohort []Entry) []Placement {
	sorted := make([]Entry, len(cohort))
	copy(sorted, cohort)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Average > sorted[j].Average })

	placements := make([]Placement, 0, len(sorted))
	for i, e := range sorted {
		placements = append(placements, Placement{StudentID: e.StudentID, Average: e.Average, Rank: i + 1})
	}
	return placements
}

// Ranks indexes the placements' ranks by student.
func Ranks(placements []Placement) map[string]int {
	ranks := make(map[string]int, len(placements))
	for _, p := range placements {
		ranks[p.StudentID] = p.Rank
	}
	return ranks
}
