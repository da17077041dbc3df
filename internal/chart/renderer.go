package chart

import (
	"bytes"
	"io"
	"strconv"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Value is one labeled datum for pie/bar families.
type Value struct {
	Label string
	Value float64
}

// TimeSeries is one named line over calendar days.
type TimeSeries struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Renderer produces PNG chart images for workbook embedding and for the
// WhatsApp digest. Implementations return nil for series with no drawable
// data; callers treat a nil image as "no visual provided".
type Renderer interface {
	Pie(title string, values []Value) []byte
	Bar(title string, values []Value) []byte
	Line(title string, series []TimeSeries) []byte
	Scatter(title, xLabel, yLabel string, xs, ys []float64) []byte
	Histogram(title string, samples []float64, buckets int) []byte
	DualAxis(title string, labels []string, counts, currency []float64) []byte
}

var palette = []drawing.Color{
	{R: 0x2e, G: 0x7d, B: 0x32, A: 255},
	{R: 0x15, G: 0x65, B: 0xc0, A: 255},
	{R: 0xc6, G: 0x28, B: 0x28, A: 255},
	{R: 0xf9, G: 0xa8, B: 0x25, A: 255},
	{R: 0x6a, G: 0x1b, B: 0x9a, A: 255},
	{R: 0x00, G: 0x83, B: 0x8f, A: 255},
}

// PNG renders with go-chart.
type PNG struct{}

func NewPNG() PNG { return PNG{} }

func (PNG) Pie(title string, values []Value) []byte {
	vals := drawableValues(values)
	if len(vals) == 0 {
		return nil
	}
	pie := gochart.PieChart{
		Title:  title,
		Width:  640,
		Height: 420,
		Values: vals,
	}
	return render(pie.Render)
}

func (PNG) Bar(title string, values []Value) []byte {
	vals := drawableValues(values)
	if len(vals) == 0 {
		return nil
	}
	for i := range vals {
		vals[i].Style = gochart.Style{
			FillColor:   palette[i%len(palette)],
			StrokeColor: palette[i%len(palette)],
		}
	}
	bar := gochart.BarChart{
		Title:    title,
		Width:    maxInt(640, 90*len(vals)),
		Height:   420,
		BarWidth: 48,
		Bars:     vals,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
	}
	return render(bar.Render)
}

func (PNG) Line(title string, series []TimeSeries) []byte {
	var drawable []gochart.Series
	for i, s := range series {
		if len(s.Times) == 0 || len(s.Times) != len(s.Values) {
			continue
		}
		drawable = append(drawable, gochart.TimeSeries{
			Name:    s.Name,
			XValues: s.Times,
			YValues: s.Values,
			Style: gochart.Style{
				StrokeColor: palette[i%len(palette)],
				StrokeWidth: 2,
			},
		})
	}
	if len(drawable) == 0 {
		return nil
	}
	graph := gochart.Chart{
		Title:  title,
		Width:  720,
		Height: 420,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		Series: drawable,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return render(graph.Render)
}

func (PNG) Scatter(title, xLabel, yLabel string, xs, ys []float64) []byte {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil
	}
	graph := gochart.Chart{
		Title:  title,
		Width:  640,
		Height: 420,
		XAxis:  gochart.XAxis{Name: xLabel},
		YAxis:  gochart.YAxis{Name: yLabel},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeWidth: gochart.Disabled,
					DotWidth:    5,
					DotColor:    palette[1],
				},
			},
		},
	}
	return render(graph.Render)
}

func (p PNG) Histogram(title string, samples []float64, buckets int) []byte {
	if len(samples) == 0 || buckets <= 0 {
		return nil
	}
	minV, maxV := samples[0], samples[0]
	for _, s := range samples {
		if s < minV {
			minV = s
		}
		if s > maxV {
			maxV = s
		}
	}
	if maxV == minV {
		maxV = minV + 1
	}
	width := (maxV - minV) / float64(buckets)
	counts := make([]int, buckets)
	for _, s := range samples {
		idx := int((s - minV) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		counts[idx]++
	}
	values := make([]Value, buckets)
	for i, c := range counts {
		lo := minV + float64(i)*width
		values[i] = Value{
			Label: formatBucket(lo, lo+width),
			Value: float64(c),
		}
	}
	return p.Bar(title, values)
}

// DualAxis draws counts against the primary axis and currency totals against
// the secondary one, sharing the category ticks.
func (PNG) DualAxis(title string, labels []string, counts, currency []float64) []byte {
	if len(labels) == 0 || len(labels) != len(counts) || len(labels) != len(currency) {
		return nil
	}
	xs := make([]float64, len(labels))
	ticks := make([]gochart.Tick, len(labels))
	for i, l := range labels {
		xs[i] = float64(i)
		ticks[i] = gochart.Tick{Value: float64(i), Label: l}
	}
	graph := gochart.Chart{
		Title:  title,
		Width:  maxInt(720, 110*len(labels)),
		Height: 440,
		XAxis: gochart.XAxis{
			Ticks: ticks,
		},
		YAxis:          gochart.YAxis{Name: "Quantidade"},
		YAxisSecondary: gochart.YAxis{Name: "Valor (R$)"},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Quantidade",
				XValues: xs,
				YValues: counts,
				Style: gochart.Style{
					StrokeColor: palette[0],
					StrokeWidth: 3,
					DotWidth:    5,
					DotColor:    palette[0],
				},
			},
			gochart.ContinuousSeries{
				Name:    "Valor (R$)",
				YAxis:   gochart.YAxisSecondary,
				XValues: xs,
				YValues: currency,
				Style: gochart.Style{
					StrokeColor: palette[1],
					StrokeWidth: 3,
					DotWidth:    5,
					DotColor:    palette[1],
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return render(graph.Render)
}

func drawableValues(values []Value) []gochart.Value {
	out := make([]gochart.Value, 0, len(values))
	for _, v := range values {
		if v.Value <= 0 {
			continue
		}
		out = append(out, gochart.Value{Label: v.Label, Value: v.Value})
	}
	return out
}

func render(fn func(gochart.RendererProvider, io.Writer) error) []byte {
	var buf bytes.Buffer
	if err := fn(gochart.PNG, &buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

func formatBucket(lo, hi float64) string {
	return strconv.Itoa(int(lo)) + "-" + strconv.Itoa(int(hi))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
