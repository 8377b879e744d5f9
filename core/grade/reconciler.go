package grade

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

const DefaultUpdateBatchSize = 100

type (
	Incoming struct {
		// Row is the caller's row number, echoed back in RowError.
		Row       int      `json:"row"`
		StudentID string   `json:"student_id" validate:"notblank"`
		SubjectID string   `json:"subject_id" validate:"notblank"`
		Score     *float64 `json:"score"`
	}

	RowError struct {
		Row       int    `json:"row"`
		StudentID string `json:"student_id"`
		SubjectID string `json:"subject_id"`
		Reason    string `json:"reason"`
	}

	// BatchError reports an update chunk that failed; its rows can be retried as they are.
	BatchError struct {
		Batch   int    `json:"batch"`
		Keys    []Key  `json:"keys"`
		Err     error  `json:"-"`
		Message string `json:"error"`
	}

	Result struct {
		Created     int          `json:"created"`
		Updated     int          `json:"updated"`
		Skipped     int          `json:"skipped"`
		Errors      []RowError   `json:"errors"`
		BatchErrors []BatchError `json:"batch_errors"`
	}

	Reconciler struct {
		repo      Repository
		catalog   subject.Catalog
		schools   school.Repository
		validate  *validator.Validate
		logger    core.Logger
		batchSize int
	}
)

// Failed counts the incoming rows that were not applied.
func (res Result) Failed() int {
	n := len(res.Errors)
	for _, be := range res.BatchErrors {
		n += len(be.Keys)
	}
	return n
}

func NewReconciler(
	repo Repository,
	catalog subject.Catalog,
	schools school.Repository,
	validate *validator.Validate,
	logger core.Logger,
	batchSize int,
) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultUpdateBatchSize
	}
	return &Reconciler{
		repo:      repo,
		catalog:   catalog,
		schools:   schools,
		validate:  validate,
		logger:    logger,
		batchSize: batchSize,
	}
}

type validRow struct {
	in   Incoming
	subj subject.Subject
}

// Reconcile diffs incoming scores against the stored records of the class for the period
// and applies the minimal set of creates and updates.
// Bad rows are reported in Result.Errors; only an unknown class or a storage failure returns an error.
func (rec *Reconciler) Reconcile(ctx context.Context, classID string, period core.Period, incoming []Incoming) (Result, error) {
	res := Result{Errors: []RowError{}, BatchErrors: []BatchError{}}
	if !period.Valid() {
		return res, core.NewValidationError(fmt.Errorf("invalid period %q", period))
	}
	class, err := rec.schools.GetClass(ctx, classID)
	if err != nil {
		return res, errors.Wrap(err, "getting class")
	}

	rows, err := rec.validateRows(ctx, class, incoming, &res)
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, nil
	}

	keys := make([]Key, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, Key{StudentID: row.in.StudentID, SubjectID: row.in.SubjectID})
	}
	existing, err := rec.repo.FindRecords(ctx, classID, period, keys)
	if err != nil {
		return res, errors.Wrap(err, "finding existing grade records")
	}
	byKey := make(map[Key]Record, len(existing))
	for _, r := range existing {
		byKey[r.Key()] = r
	}

	now := NowFunc().UTC()
	var creates, updates []Record
	for _, row := range rows {
		key := Key{StudentID: row.in.StudentID, SubjectID: row.in.SubjectID}
		stored, ok := byKey[key]
		switch {
		case !ok:
			r := Record{
				ID:          uuid.New().String(),
				StudentID:   key.StudentID,
				SubjectID:   key.SubjectID,
				ClassID:     classID,
				Month:       period.MonthName(),
				MonthNumber: int(period.Month),
				Year:        period.Year,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			r.setScore(row.in.Score, row.subj)
			creates = append(creates, r)
		case !sameScore(stored.Score, row.in.Score):
			stored.setScore(row.in.Score, row.subj)
			stored.UpdatedAt = now
			updates = append(updates, stored)
		default:
			res.Skipped++
		}
	}

	if len(creates) > 0 {
		inserted, err := rec.repo.InsertRecords(ctx, creates)
		if err != nil {
			return res, errors.Wrap(err, "inserting grade records")
		}
		res.Created = inserted
		// rows dropped by a concurrent writer's insert
		res.Skipped += len(creates) - inserted
	}

	for batch, start := 0, 0; start < len(updates); batch, start = batch+1, start+rec.batchSize {
		end := start + rec.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		chunk := updates[start:end]
		if err := rec.repo.UpdateRecords(ctx, chunk); err != nil {
			be := BatchError{Batch: batch, Keys: make([]Key, 0, len(chunk)), Err: err, Message: err.Error()}
			for _, r := range chunk {
				be.Keys = append(be.Keys, r.Key())
			}
			res.BatchErrors = append(res.BatchErrors, be)
			rec.logger.Warn(fmt.Sprintf("updating grade records: batch %d of class %s (%s) failed", batch, classID, period), err)
			continue
		}
		res.Updated += len(chunk)
	}

	rec.logger.Info(fmt.Sprintf(
		"reconciled %d rows for class %s (%s): created=%d updated=%d skipped=%d failed=%d",
		len(incoming), classID, period, res.Created, res.Updated, res.Skipped, res.Failed(),
	))
	return res, nil
}

// validateRows drops invalid rows into res.Errors and returns the remaining ones with their subject.
func (rec *Reconciler) validateRows(ctx context.Context, class school.Class, incoming []Incoming, res *Result) ([]validRow, error) {
	roster, err := rec.schools.ListStudents(ctx, class.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	enrolled := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		enrolled[st.ID] = struct{}{}
	}

	ids := make([]string, 0, len(incoming))
	seenIDs := make(map[string]struct{}, len(incoming))
	for _, in := range incoming {
		id := core.CleanString(in.SubjectID)
		if _, ok := seenIDs[id]; id != "" && !ok {
			seenIDs[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	var subjects map[string]subject.Subject
	if len(ids) > 0 {
		found, err := rec.catalog.GetSubjectsByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "getting subjects")
		}
		subjects = subject.Index(found)
	}

	rows := make([]validRow, 0, len(incoming))
	seen := make(map[Key]int, len(incoming))
	for _, in := range incoming {
		in.StudentID = core.CleanString(in.StudentID)
		in.SubjectID = core.CleanString(in.SubjectID)
		reject := func(reason string) {
			res.Errors = append(res.Errors, RowError{Row: in.Row, StudentID: in.StudentID, SubjectID: in.SubjectID, Reason: reason})
		}

		if err := rec.validate.Struct(in); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok || len(vErrs) == 0 {
				return nil, errors.Wrap(err, "validating row")
			}
			reject("missing " + vErrs[0].Field())
			continue
		}
		if _, ok := enrolled[in.StudentID]; !ok {
			reject("student is not enrolled in this class")
			continue
		}
		subj, ok := subjects[in.SubjectID]
		if !ok {
			reject(subject.ErrNotFound.Error())
			continue
		}
		if !subj.IsActive {
			reject("subject is not active")
			continue
		}
		if subj.Grade != class.Grade {
			reject("subject does not belong to this class grade")
			continue
		}
		if s := in.Score; s != nil {
			if math.IsNaN(*s) || math.IsInf(*s, 0) {
				reject("score is not a number")
				continue
			}
			if *s < 0 || *s > float64(subj.MaxScore) {
				reject(fmt.Sprintf("score %v is out of range [0, %d]", *s, subj.MaxScore))
				continue
			}
		}
		key := Key{StudentID: in.StudentID, SubjectID: in.SubjectID}
		if first, dup := seen[key]; dup {
			reject(fmt.Sprintf("duplicate of row %d", first))
			continue
		}
		seen[key] = in.Row

		rows = append(rows, validRow{in: in, subj: subj})
	}
	return rows, nil
}
