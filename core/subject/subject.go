package subject

import (
	"context"

	"github.com/trezcool/masomo-grading/core"
)

var ErrNotFound = core.NewNotFoundError("subject not found")

// Track is an academic specialization of the senior grades.
type Track string

const (
	TrackNone    Track = ""
	TrackCommon  Track = "common"
	TrackScience Track = "science"
	TrackSocial  Track = "social"
)

func (t Track) Valid() bool {
	switch t {
	case TrackNone, TrackCommon, TrackScience, TrackSocial:
		return true
	}
	return false
}

// Agnostic reports whether a subject with this track applies to every track of its grade.
func (t Track) Agnostic() bool {
	return t == TrackNone || t == TrackCommon
}

type (
	Subject struct {
		ID          string  `json:"id" db:"id"`
		Code        string  `json:"code" db:"code"`
		NameKh      string  `json:"name_kh" db:"name_kh"`
		NameEn      string  `json:"name_en" db:"name_en"`
		Grade       int     `json:"grade" db:"grade"`
		Track       Track   `json:"track,omitempty" db:"track"`
		MaxScore    int     `json:"max_score" db:"max_score"`
		Coefficient float64 `json:"coefficient" db:"coefficient"`
		IsActive    bool    `json:"is_active" db:"is_active"`
	}

	// Filter narrows ListSubjects. Zero values are ignored.
	Filter struct {
		Grade      int
		ActiveOnly bool
	}

	// Catalog is the read-only subject store.
	Catalog interface {
		ListSubjects(ctx context.Context, filter Filter) ([]Subject, error)
		// GetSubjectsByIDs fetches the subjects in one round trip; unknown ids are simply absent.
		GetSubjectsByIDs(ctx context.Context, ids []string) ([]Subject, error)
	}
)

// IsTracked reports whether subjects of this grade are split by track.
func IsTracked(grade int) bool {
	_, ok := trackedGrades[grade]
	return ok
}

var trackedGrades = map[int]struct{}{11: {}, 12: {}}
