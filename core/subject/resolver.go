package subject

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

var (
	primaryOrder   = []string{"KHM", "MATH", "SCI", "SOC", "ENG", "PE", "ART"}
	secondaryOrder = []string{"KHM", "MATH", "PHY", "CHEM", "BIO", "EARTH", "HIST", "GEO", "MORAL", "ENG", "PE", "ICT", "HOME"}
)

// displayOrder returns the column position of each known subject code for a grade.
func displayOrder(grade int) map[string]int {
	codes := secondaryOrder
	if grade <= 6 {
		codes = primaryOrder
	}
	order := make(map[string]int, len(codes))
	for i, code := range codes {
		order[code] = i
	}
	return order
}

type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the ordered subjects counting toward the average of a student of `grade` in `track`.
func (r *Resolver) Resolve(ctx context.Context, grade int, track Track) ([]Subject, error) {
	subjects, err := r.catalog.ListSubjects(ctx, Filter{Grade: grade, ActiveOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	return Sort(FilterEligible(subjects, grade, track), grade), nil
}

// ResolveAll returns every active subject of the grade regardless of track.
func (r *Resolver) ResolveAll(ctx context.Context, grade int) ([]Subject, error) {
	subjects, err := r.catalog.ListSubjects(ctx, Filter{Grade: grade, ActiveOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	eligible := make([]Subject, 0, len(subjects))
	for _, subj := range subjects {
		if subj.Grade == grade && subj.IsActive {
			eligible = append(eligible, subj)
		}
	}
	return Sort(eligible, grade), nil
}

// FilterEligible keeps the active subjects of `grade` that apply to `track`.
// Track only matters for tracked grades; there, an empty track keeps the track-agnostic subjects only.
func FilterEligible(subjects []Subject, grade int, track Track) []Subject {
	eligible := make([]Subject, 0, len(subjects))
	for _, subj := range subjects {
		if subj.Grade != grade || !subj.IsActive {
			continue
		}
		if IsTracked(grade) {
			if subj.Track.Agnostic() || (track != TrackNone && subj.Track == track) {
				eligible = append(eligible, subj)
			}
		} else {
			eligible = append(eligible, subj)
		}
	}
	return eligible
}

// Sort orders subjects by the grade's display-order table.
// Unmapped codes come after the mapped ones, by code then ID.
func Sort(subjects []Subject, grade int) []Subject {
	order := displayOrder(grade)
	sorted := make([]Subject, len(subjects))
	copy(sorted, subjects)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ai, aMapped := order[a.Code]
		bi, bMapped := order[b.Code]
		switch {
		case aMapped && bMapped:
			if ai != bi {
				return ai < bi
			}
		case aMapped != bMapped:
			return aMapped
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.ID < b.ID
	})
	return sorted
}

// Index maps subjects by ID.
func Index(subjects []Subject) map[string]Subject {
	idx := make(map[string]Subject, len(subjects))
	for _, subj := range subjects {
		idx[subj.ID] = subj
	}
	return idx
}
