// Package chart renders battery logs as charts.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kilianp07/epsim/pkg/export"
)

// Default chart size.
const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

var eclipseColor = color.RGBA{R: 128, G: 128, B: 128, A: 64}

// ErrNoData is returned when the log holds no records.
var ErrNoData = errors.New("no records to plot")

// Span is a closed elapsed-time interval.
type Span struct {
	Start, End float64
}

// EclipseSpans returns the contiguous intervals where the spacecraft was in
// the dark. A span runs from the first dark record to the first lit record
// after it, or to the last record.
func EclipseSpans(recs []export.LogRecord) []Span {
	var out []Span
	start := -1
	for i, r := range recs {
		switch {
		case !r.InSun && start < 0:
			start = i
		case r.InSun && start >= 0:
			out = append(out, Span{Start: recs[start].Elapsed, End: r.Elapsed})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Span{Start: recs[start].Elapsed, End: recs[len(recs)-1].Elapsed})
	}
	return out
}

// BatteryVoltage builds the voltage against time chart with shaded eclipses.
func BatteryVoltage(recs []export.LogRecord, title string) (*plot.Plot, error) {
	if len(recs) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Battery Voltage vs. Time"
	if title != "" {
		p.Title.Text += "\n" + title
	}
	p.X.Label.Text = "ElapsedTime (seconds)"
	p.Y.Label.Text = "BatteryVoltage (V)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(recs))
	lo, hi := recs[0].Voltage, recs[0].Voltage
	for i, r := range recs {
		pts[i].X = r.Elapsed
		pts[i].Y = r.Voltage
		lo = min(lo, r.Voltage)
		hi = max(hi, r.Voltage)
	}
	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 0.1
	}
	lo, hi = lo-pad, hi+pad
	p.Y.Min, p.Y.Max = lo, hi

	for i, s := range EclipseSpans(recs) {
		band, err := plotter.NewPolygon(plotter.XYs{
			{X: s.Start, Y: lo}, {X: s.End, Y: lo}, {X: s.End, Y: hi}, {X: s.Start, Y: hi},
		})
		if err != nil {
			return nil, err
		}
		band.Color = eclipseColor
		band.LineStyle.Width = 0
		p.Add(band)
		if i == 0 {
			p.Legend.Add("Eclipse", band)
		}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)
	p.Legend.Add("Battery Voltage (V)", line)
	return p, nil
}

// Save renders the chart to path; the format follows the file extension.
func Save(recs []export.LogRecord, title, path string) error {
	p, err := BatteryVoltage(recs, title)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// Write renders the chart to w in the given format (png, svg, pdf, ...).
func Write(w io.Writer, recs []export.LogRecord, title, format string) error {
	p, err := BatteryVoltage(recs, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, strings.TrimPrefix(strings.ToLower(format), "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// FormatOf returns the image format implied by path.
func FormatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "png"
	}
	return ext
}
