package report

import (
	"context"
	"sort"
	"time"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/normalize"
)

// WeighingRow is one weighing event.
type WeighingRow struct {
	Data          time.Time
	Identificacao string
	Sexo          string
	Localizacao   string
	Peso          float64
	CE            *float64
}

type PiqueteWeights struct {
	Local     string
	Cabecas   int
	PesoMedio float64
}

type WeighingSummary struct {
	Total      int
	Machos     int
	Femeas     int
	PesoMin    float64
	PesoMax    float64
	PesoMedio  float64
	PorPiquete []PiqueteWeights
}

func isMale(sexo string) bool {
	switch sexo {
	case "M", "m", "Macho", "macho":
		return true
	}
	return false
}

func isFemale(sexo string) bool {
	switch sexo {
	case "F", "f", "Fêmea", "fêmea", "Femea", "femea":
		return true
	}
	return false
}

func SummarizeWeighings(rows []WeighingRow) WeighingSummary {
	s := WeighingSummary{Total: len(rows)}
	if len(rows) == 0 {
		return s
	}

	type acc struct {
		cabecas int
		soma    float64
	}
	porLocal := map[string]*acc{}

	var soma float64
	s.PesoMin = rows[0].Peso
	s.PesoMax = rows[0].Peso
	for _, r := range rows {
		if isMale(r.Sexo) {
			s.Machos++
		} else if isFemale(r.Sexo) {
			s.Femeas++
		}
		if r.Peso < s.PesoMin {
			s.PesoMin = r.Peso
		}
		if r.Peso > s.PesoMax {
			s.PesoMax = r.Peso
		}
		soma += r.Peso

		local := normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao))
		a, ok := porLocal[local]
		if !ok {
			a = &acc{}
			porLocal[local] = a
		}
		a.cabecas++
		a.soma += r.Peso
	}
	s.PesoMedio = soma / float64(len(rows))

	for local, a := range porLocal {
		s.PorPiquete = append(s.PorPiquete, PiqueteWeights{
			Local:     local,
			Cabecas:   a.cabecas,
			PesoMedio: a.soma / float64(a.cabecas),
		})
	}
	sort.Slice(s.PorPiquete, func(i, j int) bool {
		if s.PorPiquete[i].Cabecas != s.PorPiquete[j].Cabecas {
			return s.PorPiquete[i].Cabecas > s.PorPiquete[j].Cabecas
		}
		return s.PorPiquete[i].Local < s.PorPiquete[j].Local
	})
	return s
}

// DailyAverages computes the average-weight line per day for a filtered
// subset of rows. Returns aligned day/value slices, empty when no row passes
// the filter.
func DailyAverages(rows []WeighingRow, filter func(WeighingRow) bool) ([]time.Time, []float64) {
	type acc struct {
		soma float64
		n    int
	}
	porDia := map[string]*acc{}
	for _, r := range rows {
		if filter != nil && !filter(r) {
			continue
		}
		d := normalize.ToStorageDate(r.Data)
		if d == "" {
			continue
		}
		a, ok := porDia[d]
		if !ok {
			a = &acc{}
			porDia[d] = a
		}
		a.soma += r.Peso
		a.n++
	}

	dias := make([]string, 0, len(porDia))
	for d := range porDia {
		dias = append(dias, d)
	}
	sort.Strings(dias)

	times := make([]time.Time, 0, len(dias))
	values := make([]float64, 0, len(dias))
	for _, d := range dias {
		t, err := time.Parse(normalize.StorageDateLayout, d)
		if err != nil {
			continue
		}
		a := porDia[d]
		times = append(times, t)
		values = append(values, a.soma/float64(a.n))
	}
	return times, values
}

func (b *Builder) FetchPesagens(ctx context.Context, period normalize.Period) ([]WeighingRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_pesagem, COALESCE(identificacao, ''), COALESCE(sexo, ''),
			COALESCE(localizacao, ''), COALESCE(peso, 0), circunferencia_escrotal
		FROM pesagens
		WHERE data_pesagem BETWEEN $1 AND $2
		ORDER BY data_pesagem, identificacao
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WeighingRow
	for rows.Next() {
		var r WeighingRow
		if err := rows.Scan(&r.Data, &r.Identificacao, &r.Sexo, &r.Localizacao, &r.Peso, &r.CE); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildPesagens(ctx context.Context, period normalize.Period, withDetail bool) ([]byte, error) {
	rows, err := b.FetchPesagens(ctx, period)
	if err != nil {
		return nil, err
	}
	s := SummarizeWeighings(rows)

	title := "Resumo de Pesagens"
	if withDetail {
		title = "Pesagens"
	}

	wb := newWorkbook()
	wb.addResumo(title, period, b.now(), []indicator{
		{"Pesagens", s.Total},
		{"Machos", s.Machos},
		{"Fêmeas", s.Femeas},
		{"Peso mínimo (kg)", s.PesoMin},
		{"Peso máximo (kg)", s.PesoMax},
		{"Peso médio (kg)", s.PesoMedio},
	})

	if withDetail {
		detail := make([][]any, 0, len(rows))
		for _, r := range rows {
			var ce any = ""
			if r.CE != nil {
				ce = *r.CE
			}
			detail = append(detail, []any{
				normalize.FormatDisplayDate(r.Data), r.Identificacao, r.Sexo,
				normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao)),
				r.Peso, ce,
			})
		}
		wb.addDetail("Pesagens", []string{"Data", "Identificação", "Sexo", "Local", "Peso (kg)", "CE (cm)"}, detail)
	}

	rollup := make([][]any, 0, len(s.PorPiquete))
	for _, p := range s.PorPiquete {
		rollup = append(rollup, []any{p.Local, p.Cabecas, p.PesoMedio})
	}
	wb.addDetail("Por Piquete", []string{"Local", "Pesagens", "Peso Médio (kg)"}, rollup)

	b.addWeighingCharts(wb, rows, s)

	return wb.bytes()
}

// addWeighingCharts renders the chart sheet: sex pie, per-piquete bar, daily
// average lines, weight histogram and the CE-vs-weight scatter for males. A
// failed chart leaves its anchor empty.
func (b *Builder) addWeighingCharts(wb *workbook, rows []WeighingRow, s WeighingSummary) {
	if b.charts == nil {
		return
	}
	wb.addDetail("Gráficos", nil, nil)

	wb.addPicture("Gráficos", "A1", b.charts.Pie("Distribuição por sexo", []chart.Value{
		{Label: "Machos", Value: float64(s.Machos)},
		{Label: "Fêmeas", Value: float64(s.Femeas)},
	}))

	barras := make([]chart.Value, 0, len(s.PorPiquete))
	for _, p := range s.PorPiquete {
		barras = append(barras, chart.Value{Label: p.Local, Value: float64(p.Cabecas)})
	}
	wb.addPicture("Gráficos", "J1", b.charts.Bar("Pesagens por piquete", barras))

	var series []chart.TimeSeries
	if times, values := DailyAverages(rows, nil); len(times) > 0 {
		series = append(series, chart.TimeSeries{Name: "Geral", Times: times, Values: values})
	}
	if times, values := DailyAverages(rows, func(r WeighingRow) bool { return isMale(r.Sexo) }); len(times) > 0 {
		series = append(series, chart.TimeSeries{Name: "Machos", Times: times, Values: values})
	}
	if times, values := DailyAverages(rows, func(r WeighingRow) bool { return isFemale(r.Sexo) }); len(times) > 0 {
		series = append(series, chart.TimeSeries{Name: "Fêmeas", Times: times, Values: values})
	}
	wb.addPicture("Gráficos", "A23", b.charts.Line("Peso médio diário (kg)", series))

	pesos := make([]float64, 0, len(rows))
	for _, r := range rows {
		pesos = append(pesos, r.Peso)
	}
	wb.addPicture("Gráficos", "J23", b.charts.Histogram("Distribuição de pesos (kg)", pesos, 8))

	var ceXs, ceYs []float64
	for _, r := range rows {
		if r.CE == nil || !isMale(r.Sexo) {
			continue
		}
		ceXs = append(ceXs, *r.CE)
		ceYs = append(ceYs, r.Peso)
	}
	wb.addPicture("Gráficos", "A45", b.charts.Scatter("CE x Peso (machos)", "CE (cm)", "Peso (kg)", ceXs, ceYs))
}
