package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Month
		wantErr bool
	}{
		{name: "upper-case name", in: "JANUARY", want: time.January},
		{name: "mixed case with spaces", in: "  March ", want: time.March},
		{name: "short name", in: "dec", want: time.December},
		{name: "number", in: "7", want: time.July},
		{name: "zero-padded number", in: "09", want: time.September},
		{name: "out of range", in: "13", wantErr: true},
		{name: "unknown", in: "lol", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod(t *testing.T) {
	p := NewPeriod(time.February, 2024)
	assert.Equal(t, "FEBRUARY", p.MonthName())
	assert.Equal(t, "FEBRUARY 2024", p.String())
	assert.True(t, p.Valid())
	assert.False(t, Period{Year: 2024}.Valid())
	assert.False(t, Period{Month: time.May}.Valid())
}
