package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-grading/apps/api/echo"
	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/gradeimport"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/report"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
	"github.com/trezcool/masomo-grading/storage/database/inmem"
	"github.com/trezcool/masomo-grading/tests"
)

var march = core.NewPeriod(time.March, 2024)

type fixture struct {
	app      Server
	reports  *report.Service
	subjects *inmemdb.SubjectRepository
	schools  *inmemdb.SchoolRepository
	grades   *inmemdb.GradeRepository
}

func setup(t *testing.T) *fixture {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	f := &fixture{
		subjects: inmemdb.NewSubjectRepository(db),
		schools:  inmemdb.NewSchoolRepository(db),
		grades:   inmemdb.NewGradeRepository(db),
	}
	attendanceRepo := inmemdb.NewAttendanceRepository(db)
	summaryRepo := inmemdb.NewSummaryRepository(db)

	// set up services
	validate, translator := testutil.NewValidator()
	logger := testutil.NewLogger(t)
	resolver := subject.NewResolver(f.subjects)
	reconciler := grade.NewReconciler(f.grades, f.subjects, f.schools, validate, logger, 0)
	f.reports = report.NewService(f.schools, resolver, f.grades, attendanceRepo)

	// seed a grade 7 class: A & B graded, C not
	testutil.CreateClass(t, f.schools, "c1", "7A", 7, subject.TrackNone)
	testutil.CreateStudent(t, f.schools, "a", "c1", "Ana", "Alpha", school.GenderFemale)
	testutil.CreateStudent(t, f.schools, "b", "c1", "Ben", "Bravo", school.GenderMale)
	testutil.CreateStudent(t, f.schools, "c", "c1", "Cleo", "Charlie", school.GenderFemale)
	testutil.CreateSubject(t, f.subjects, "khm", "KHM", 7, subject.TrackNone, 100, 1)
	testutil.CreateSubject(t, f.subjects, "math", "MATH", 7, subject.TrackNone, 100, 2)

	// set up server
	f.app = NewServer(
		ServerDeps{
			Conf:           &core.Config{TestMode: true},
			Logger:         logger,
			DisableReqLogs: true,
			Schools:        f.schools,
			Resolver:       resolver,
			Reconciler:     reconciler,
			Importer:       gradeimport.NewImporter(reconciler, f.schools, resolver, gradeimport.V1),
			Ranking:        ranking.NewService(f.schools, resolver, f.grades, summaryRepo, logger),
			Reports:        f.reports,
			Validate:       validate,
			Translator:     translator,
		},
	)
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
