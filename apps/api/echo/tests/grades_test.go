package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-grading/apps/api/echo"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/gradeimport"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/subject"
	"github.com/trezcool/masomo-grading/tests"
)

func Test_home(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	f.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Grading API!", rec.Body.String())
}

func Test_gradeApi_subjects(t *testing.T) {
	f := setup(t)
	testutil.CreateSubject(t, f.subjects, "art", "ART", 7, subject.TrackNone, 50, 1, false)

	khm := subject.Subject{ID: "khm", Code: "KHM", NameKh: "KHM", NameEn: "KHM", Grade: 7, MaxScore: 100, Coefficient: 1, IsActive: true}
	math := subject.Subject{ID: "math", Code: "MATH", NameKh: "MATH", NameEn: "MATH", Grade: 7, MaxScore: 100, Coefficient: 2, IsActive: true}

	runHTTPTests(t, f.app, []httpTest{
		{
			name:     "class not found",
			method:   http.MethodGet,
			path:     "/v1/classes/lol/subjects",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name:     "active subjects in display order",
			method:   http.MethodGet,
			path:     "/v1/classes/c1/subjects",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []subject.Subject{khm, math}),
		},
	})
}

func Test_gradeApi_reconcile(t *testing.T) {
	f := setup(t)

	body := func(in ...grade.Incoming) []byte {
		return marchallObj(t, ReconcileRequest{Grades: in})
	}
	row := func(n int, studentID, subjectID string, score float64) grade.Incoming {
		return grade.Incoming{Row: n, StudentID: studentID, SubjectID: subjectID, Score: testutil.FloatPtr(score)}
	}
	first := body(row(1, "a", "math", 90), row(2, "a", "khm", 80), row(3, "b", "math", 60))
	second := body(row(1, "a", "math", 90), row(2, "a", "khm", 80), row(3, "b", "math", 70), row(4, "z", "math", 10))

	runHTTPTests(t, f.app, []httpTest{
		{
			name:     "missing period",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades",
			body:     first,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": "this field is required", "year": "this field is required"}),
		},
		{
			name:     "invalid period",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades?month=lol&year=2024",
			body:     first,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": "invalid month"}),
		},
		{
			name:     "class not found",
			method:   http.MethodPost,
			path:     "/v1/classes/lol/grades?month=march&year=2024",
			body:     first,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name:     "no grades",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades?month=march&year=2024",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grades": "this field is required"}),
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades?month=MAR&year=2024",
			body:     first,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grade.Result{Created: 3, Errors: []grade.RowError{}, BatchErrors: []grade.BatchError{}}),
		},
		{
			name:     "resubmit with one change and one stranger",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades?month=3&year=2024",
			body:     second,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grade.Result{
				Updated:     1,
				Skipped:     2,
				Errors:      []grade.RowError{{Row: 4, StudentID: "z", SubjectID: "math", Reason: "student is not enrolled in this class"}},
				BatchErrors: []grade.BatchError{},
			}),
		},
	})

	assert.Equal(t, 3, f.grades.Count())
}

func Test_gradeApi_importFile(t *testing.T) {
	f := setup(t)

	sheet := "student_code,name,KHM,MATH\nST-a,Ana,80,90\nST-b,Ben,,60\nST-x,Xavier,1,1\n"
	wantImported := marchallObj(t, gradeimport.Result{
		Result: grade.Result{
			Created: 4,
			Errors: []grade.RowError{
				{Row: 4, Reason: `unknown student code "ST-x"`},
			},
			BatchErrors: []grade.BatchError{},
		},
		Rows: 3,
	})

	t.Run("raw csv body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/classes/c1/grades/import?month=march&year=2024", bytes.NewBufferString(sheet))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantImported}, rec)
	})

	t.Run("multipart upload is idempotent", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "grades.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(sheet))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/classes/c1/grades/import?month=march&year=2024", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.app.ServeHTTP(rec, req)

		want := marchallObj(t, gradeimport.Result{
			Result: grade.Result{
				Skipped:     4,
				Errors:      []grade.RowError{{Row: 4, Reason: `unknown student code "ST-x"`}},
				BatchErrors: []grade.BatchError{},
			},
			Rows: 3,
		})
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: want}, rec)
	})

	t.Run("missing file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("lol", "mdr"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/classes/c1/grades/import?month=march&year=2024", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "a CSV file is required"}),
		}, rec)
	})

	runHTTPTests(t, f.app, []httpTest{
		{
			name:     "invalid header",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades/import?month=march&year=2024",
			body:     []byte("student_id,PHY\na,10\n"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"PHY": "unrecognized column", "subjects": "missing subject columns"}),
		},
		{
			name:     "empty file",
			method:   http.MethodPost,
			path:     "/v1/classes/c1/grades/import?month=march&year=2024",
			body:     []byte(""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "empty csv: missing header"}),
		},
	})
}

func Test_gradeApi_summaries(t *testing.T) {
	f := setup(t)

	// nothing refreshed yet
	req, rec := newRequest(http.MethodGet, "/v1/classes/c1/summaries?month=march&year=2024")
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	req, rec = newRequest(http.MethodPost, "/v1/classes/c1/grades?month=march&year=2024", []byte(
		`{"grades": [
			{"row": 1, "student_id": "a", "subject_id": "math", "score": 90},
			{"row": 2, "student_id": "a", "subject_id": "khm", "score": 80},
			{"row": 3, "student_id": "b", "subject_id": "math", "score": 60}
		]}`,
	))
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodPost, "/v1/classes/c1/summaries?month=march&year=2024")
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed []ranking.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))

	// roster order: Alpha, Bravo, Charlie
	require.Len(t, refreshed, 3)
	for i, want := range []struct {
		id      string
		average float64
		rank    int
	}{
		{id: "a", average: 170.0 / 3, rank: 1},
		{id: "b", average: 20, rank: 2},
		{id: "c", average: 0, rank: 3},
	} {
		assert.Equal(t, want.id, refreshed[i].StudentID)
		assert.InDelta(t, want.average, refreshed[i].Average, 1e-9)
		assert.Equal(t, want.rank, refreshed[i].ClassRank)
		assert.Equal(t, "MARCH", refreshed[i].Month)
	}

	req, rec = newRequest(http.MethodGet, "/v1/classes/c1/summaries?month=march&year=2024")
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []ranking.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{listed[0].StudentID, listed[1].StudentID, listed[2].StudentID})
}
