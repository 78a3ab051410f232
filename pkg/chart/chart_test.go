package chart

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/epsim/pkg/export"
)

func sampleLog() []export.LogRecord {
	var recs []export.LogRecord
	for i := 0; i < 20; i++ {
		recs = append(recs, export.LogRecord{
			Elapsed: float64(i+1) * 10,
			SOC:     0.5,
			Voltage: 24 + float64(i)*0.01,
			InSun:   i < 5 || (i >= 10 && i < 15),
		})
	}
	return recs
}

func TestEclipseSpans(t *testing.T) {
	spans := EclipseSpans(sampleLog())
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 60, End: 110}, spans[0])
	assert.Equal(t, Span{Start: 160, End: 200}, spans[1])

	assert.Empty(t, EclipseSpans([]export.LogRecord{{InSun: true}}))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, Save(sampleLog(), "Night Pass", path))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleLog(), "", "svg"))
	assert.Contains(t, buf.String(), "<svg")
}

func TestNoData(t *testing.T) {
	err := Save(nil, "", filepath.Join(t.TempDir(), "x.png"))
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "png", FormatOf("chart"))
	assert.Equal(t, "svg", FormatOf("out/Chart.SVG"))
}
