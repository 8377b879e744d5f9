package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		cohort []Entry
		want   []Placement
	}{
		{name: "empty", cohort: nil, want: []Placement{}},
		{
			name:   "descending by average",
			cohort: []Entry{{"c", 0}, {"a", 56.67}, {"b", 20}},
			want:   []Placement{{"a", 56.67, 1}, {"b", 20, 2}, {"c", 0, 3}},
		},
		{
			name:   "ties keep incoming order with distinct ranks",
			cohort: []Entry{{"x", 30}, {"y", 40}, {"z", 30}, {"w", 30}},
			want:   []Placement{{"y", 40, 1}, {"x", 30, 2}, {"z", 30, 3}, {"w", 30, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.cohort))
		})
	}
}

func TestRank_monotonic(t *testing.T) {
	cohort := []Entry{{"a", 12.5}, {"b", 44}, {"c", 44}, {"d", 3}, {"e", 27.25}, {"f", 0}, {"g", 44.01}}
	ranks := Ranks(Rank(cohort))
	for _, i := range cohort {
		for _, j := range cohort {
			if i.Average > j.Average {
				assert.Less(t, ranks[i.StudentID], ranks[j.StudentID], "%s vs %s", i.StudentID, j.StudentID)
			}
		}
	}
	assert.Len(t, ranks, len(cohort))
}

func TestRank_doesNotReorderInput(t *testing.T) {
	cohort := []Entry{{"a", 1}, {"b", 2}}
	Rank(cohort)
	assert.Equal(t, "a", cohort[0].StudentID)
}
