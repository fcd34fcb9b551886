package installer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEnv(t *testing.T) {
	got := RenderEnv(EnvValues{
		SheetsKey:     "abc",
		ScheduleTime1: "07:30",
		ScheduleTime2: "19:45",
		RunOnStart:    false,
	})
	assert.Equal(t, "GOOGLE_SHEETS_KEY=abc\nSCHEDULE_TIME_1=07:30\nSCHEDULE_TIME_2=19:45\nRUN_ON_START=false\n", got)
}

func TestNormalizeSheetKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare key", "1AbC_xyz-9", "1AbC_xyz-9"},
		{"surrounding space", "  1AbC \n", "1AbC"},
		{"edit url", "https://docs.google.com/spreadsheets/d/1AbC/edit#gid=0", "1AbC"},
		{"user path url", "https://docs.google.com/spreadsheets/u/0/d/1AbC/", "1AbC"},
		{"url without scheme", "docs.google.com/spreadsheets/d/1AbC/edit", "1AbC"},
		{"url without key", "https://docs.google.com/spreadsheets/", "https://docs.google.com/spreadsheets/"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSheetKey(tt.input))
		})
	}
}

func TestSheetURL(t *testing.T) {
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/1AbC", SheetURL("1AbC"))
}

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"line", "1AbC\n", "1AbC", true},
		{"no trailing newline", "1AbC", "1AbC", true},
		{"blank line", "\n", "", true},
		{"eof", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewLinePrompter(strings.NewReader(tt.input), &out)

			key, ok, err := p.SheetKey(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Contains(t, out.String(), "Google Sheet key")
		})
	}
}
