package sqlxrepos

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-grading/core/grade"
)

func Test_bulkInsertQuery(t *testing.T) {
	score := 42.0
	recs := []grade.Record{
		{ID: "r1", StudentID: "s1", SubjectID: "math", ClassID: "c1", Month: "MARCH", MonthNumber: 3, Year: 2024, Score: &score, MaxScore: 50},
		{ID: "r2", StudentID: "s2", SubjectID: "math", ClassID: "c1", Month: "MARCH", MonthNumber: 3, Year: 2024, MaxScore: 50},
	}

	query, args := bulkInsertQuery(recs)

	assert.Len(t, args, 2*gradeColumnCount)
	assert.True(t, strings.HasPrefix(query, "INSERT INTO grade_record ("))
	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13), ($14,")
	assert.Contains(t, query, "$26)")
	assert.NotContains(t, query, "$27")
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT ON CONSTRAINT grade_record_natural_key DO NOTHING"))
	assert.Equal(t, "r2", args[gradeColumnCount])
}
