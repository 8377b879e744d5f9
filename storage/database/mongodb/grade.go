package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
)

const (
	gradeCollection = "grade_records"

	duplicateKeyCode = 11000
)

type gradeDocument struct {
	ID            string    `bson:"_id"`
	StudentID     string    `bson:"student_id"`
	SubjectID     string    `bson:"subject_id"`
	ClassID       string    `bson:"class_id"`
	Month         string    `bson:"month"`
	MonthNumber   int       `bson:"month_number"`
	Year          int       `bson:"year"`
	Score         *float64  `bson:"score"`
	MaxScore      int       `bson:"max_score"`
	Percentage    *float64  `bson:"percentage"`
	WeightedScore *float64  `bson:"weighted_score"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func newGradeDocument(rec grade.Record) gradeDocument {
	return gradeDocument(rec)
}

// GradeRepository stores grade records in a single collection keyed by record ID.
// Updates run in a transaction, which requires a replica set.
type GradeRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ grade.Repository = (*GradeRepository)(nil)

func NewGradeRepository(client *mongo.Client, db *mongo.Database) *GradeRepository {
	return &GradeRepository{client: client, coll: db.Collection(gradeCollection)}
}

// EnsureIndexes creates the natural key unique index and the class/period lookup index.
func (repo *GradeRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "student_id", Value: 1},
				{Key: "subject_id", Value: 1},
				{Key: "class_id", Value: 1},
				{Key: "month", Value: 1},
				{Key: "year", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("grade_record_natural_key"),
		},
		{
			Keys: bson.D{
				{Key: "class_id", Value: 1},
				{Key: "year", Value: 1},
				{Key: "month_number", Value: 1},
			},
			Options: options.Index().SetName("grade_record_class_period"),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Wrap(err, "creating grade record indexes")
	}
	return nil
}

func (repo *GradeRepository) FindRecords(ctx context.Context, classID string, period core.Period, keys []grade.Key) ([]grade.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	wanted := make(map[grade.Key]struct{}, len(keys))
	studentIDs := make([]string, 0, len(keys))
	subjectIDs := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := wanted[k]; ok {
			continue
		}
		wanted[k] = struct{}{}
		studentIDs = append(studentIDs, k.StudentID)
		subjectIDs = append(subjectIDs, k.SubjectID)
	}

	filter := bson.M{
		"class_id":   classID,
		"month":      period.MonthName(),
		"year":       period.Year,
		"student_id": bson.M{"$in": studentIDs},
		"subject_id": bson.M{"$in": subjectIDs},
	}
	recs, err := repo.find(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	// the $in pair over-fetches cross combinations
	found := recs[:0]
	for _, rec := range recs {
		if _, ok := wanted[rec.Key()]; ok {
			found = append(found, rec)
		}
	}
	return found, nil
}

func (repo *GradeRepository) InsertRecords(ctx context.Context, recs []grade.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, newGradeDocument(rec))
	}

	_, err := repo.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(recs), nil
	}
	writeErrs, ok := bulkWriteErrors(err)
	if !ok {
		return 0, errors.Wrap(err, "inserting grade records")
	}
	for _, we := range writeErrs {
		if we.Code != duplicateKeyCode {
			return 0, errors.Wrap(err, "inserting grade records")
		}
	}
	return len(recs) - len(writeErrs), nil
}

func (repo *GradeRepository) UpdateRecords(ctx context.Context, recs []grade.Record) error {
	if len(recs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		update := bson.M{"$set": bson.M{
			"score":          rec.Score,
			"max_score":      rec.MaxScore,
			"percentage":     rec.Percentage,
			"weighted_score": rec.WeightedScore,
			"updated_at":     rec.UpdatedAt,
		}}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": rec.ID}).SetUpdate(update))
	}

	session, err := repo.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := repo.coll.BulkWrite(sessCtx, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return nil, err
		}
		if int(res.MatchedCount) != len(recs) {
			return nil, errors.Errorf("%d of %d grade records not found", len(recs)-int(res.MatchedCount), len(recs))
		}
		return nil, nil
	})
	return errors.Wrap(err, "updating grade records")
}

func (repo *GradeRepository) QueryRecords(ctx context.Context, filter grade.Filter) ([]grade.Record, error) {
	q := bson.M{}
	if len(filter.ClassIDs) > 0 {
		q["class_id"] = bson.M{"$in": filter.ClassIDs}
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	if filter.Month != 0 {
		q["month_number"] = int(filter.Month)
	}
	if len(filter.SubjectIDs) > 0 {
		q["subject_id"] = bson.M{"$in": filter.SubjectIDs}
	}
	if len(filter.StudentIDs) > 0 {
		q["student_id"] = bson.M{"$in": filter.StudentIDs}
	}
	sort := bson.D{
		{Key: "year", Value: 1},
		{Key: "month_number", Value: 1},
		{Key: "student_id", Value: 1},
		{Key: "subject_id", Value: 1},
	}
	return repo.find(ctx, q, options.Find().SetSort(sort))
}

func (repo *GradeRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]grade.Record, error) {
	if opts == nil {
		opts = options.Find()
	}
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding grade records")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []gradeDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding grade records")
	}
	recs := make([]grade.Record, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, grade.Record(doc))
	}
	return recs, nil
}

// bulkWriteErrors extracts the per-document errors of an unordered insert.
// A write concern failure is not a per-document error.
func bulkWriteErrors(err error) ([]mongo.BulkWriteError, bool) {
	var bwe mongo.BulkWriteException
	switch e := err.(type) {
	case mongo.BulkWriteException:
		bwe = e
	case *mongo.BulkWriteException:
		bwe = *e
	default:
		return nil, false
	}
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return nil, false
	}
	return bwe.WriteErrors, true
}
