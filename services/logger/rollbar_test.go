package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-grading/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Warn("batch 2 failed", errors.New("conn reset"), nil, map[string]interface{}{"class": "c1"})

	assert.Equal(t, "WARN: batch 2 failed\nconn reset\nmap[class:c1]\n", buf.String())
	assert.Equal(t, []interface{}{"msg", 1}, logger.prepare("msg", []interface{}{nil, 1}))
}
