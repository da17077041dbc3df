package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/normalize"
)

// BirthRow is one birth record in the period.
type BirthRow struct {
	Data          time.Time
	Identificacao string
	Sexo          string
	Localizacao   string
	Mae           string
	Pai           string
}

// BirthSummary is shared with the digest composer.
type BirthSummary struct {
	Total      int
	Machos     int
	Femeas     int
	PorPiquete []LocalTotal
}

type LocalTotal struct {
	Local string
	Total int
}

func SummarizeBirths(rows []BirthRow) BirthSummary {
	s := BirthSummary{Total: len(rows)}
	porLocal := map[string]int{}
	for _, r := range rows {
		switch r.Sexo {
		case "M", "m", "Macho", "macho":
			s.Machos++
		case "F", "f", "Fêmea", "fêmea", "Femea", "femea":
			s.Femeas++
		}
		local := normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao))
		porLocal[local]++
	}
	s.PorPiquete = sortLocalTotals(porLocal)
	return s
}

func sortLocalTotals(m map[string]int) []LocalTotal {
	out := make([]LocalTotal, 0, len(m))
	for local, total := range m {
		out = append(out, LocalTotal{Local: local, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Local < out[j].Local
	})
	return out
}

func (b *Builder) FetchNascimentos(ctx context.Context, period normalize.Period) ([]BirthRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_nascimento, COALESCE(identificacao, ''), COALESCE(sexo, ''),
			COALESCE(localizacao, observacao, ''), COALESCE(mae, ''), COALESCE(pai, '')
		FROM nascimentos
		WHERE data_nascimento BETWEEN $1 AND $2
		ORDER BY data_nascimento
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BirthRow
	for rows.Next() {
		var r BirthRow
		if err := rows.Scan(&r.Data, &r.Identificacao, &r.Sexo, &r.Localizacao, &r.Mae, &r.Pai); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildNascimentos(ctx context.Context, period normalize.Period) ([]byte, error) {
	rows, err := b.FetchNascimentos(ctx, period)
	if err != nil {
		return nil, err
	}
	s := SummarizeBirths(rows)

	wb := newWorkbook()
	wb.addResumo("Nascimentos", period, b.now(), []indicator{
		{"Total de nascimentos", s.Total},
		{"Machos", s.Machos},
		{"Fêmeas", s.Femeas},
	})

	detail := make([][]any, 0, len(rows))
	for _, r := range rows {
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Identificacao, r.Sexo,
			normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao)),
			r.Mae, r.Pai,
		})
	}
	wb.addDetail("Nascimentos", []string{"Data", "Identificação", "Sexo", "Local", "Mãe", "Pai"}, detail)

	porLocal := make([][]any, 0, len(s.PorPiquete))
	for _, t := range s.PorPiquete {
		porLocal = append(porLocal, []any{t.Local, t.Total})
	}
	wb.addDetail("Por Local", []string{"Local", "Nascimentos"}, porLocal)

	return wb.bytes()
}

// DeathRow is one death record in the period.
type DeathRow struct {
	Data          time.Time
	Identificacao string
	Causa         string
	Localizacao   string
}

type DeathSummary struct {
	Total    int
	PorCausa []CausaTotal
}

type CausaTotal struct {
	Causa string
	Total int
}

func SummarizeDeaths(rows []DeathRow) DeathSummary {
	s := DeathSummary{Total: len(rows)}
	porCausa := map[string]int{}
	for _, r := range rows {
		causa := r.Causa
		if causa == "" {
			causa = "Não informada"
		}
		porCausa[causa]++
	}
	for causa, total := range porCausa {
		s.PorCausa = append(s.PorCausa, CausaTotal{Causa: causa, Total: total})
	}
	sort.Slice(s.PorCausa, func(i, j int) bool {
		if s.PorCausa[i].Total != s.PorCausa[j].Total {
			return s.PorCausa[i].Total > s.PorCausa[j].Total
		}
		return s.PorCausa[i].Causa < s.PorCausa[j].Causa
	})
	return s
}

func (b *Builder) FetchMortes(ctx context.Context, period normalize.Period) ([]DeathRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_morte, COALESCE(identificacao, ''), COALESCE(causa, ''), COALESCE(localizacao, '')
		FROM mortes
		WHERE data_morte BETWEEN $1 AND $2
		ORDER BY data_morte
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeathRow
	for rows.Next() {
		var r DeathRow
		if err := rows.Scan(&r.Data, &r.Identificacao, &r.Causa, &r.Localizacao); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildMortes(ctx context.Context, period normalize.Period) ([]byte, error) {
	rows, err := b.FetchMortes(ctx, period)
	if err != nil {
		return nil, err
	}
	s := SummarizeDeaths(rows)

	wb := newWorkbook()
	indicators := []indicator{{"Total de mortes", s.Total}}
	for i, c := range s.PorCausa {
		if i >= 3 {
			break
		}
		indicators = append(indicators, indicator{"Causa: " + c.Causa, c.Total})
	}
	wb.addResumo("Mortes", period, b.now(), indicators)

	detail := make([][]any, 0, len(rows))
	for _, r := range rows {
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Identificacao, r.Causa,
			normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao)),
		})
	}
	wb.addDetail("Mortes", []string{"Data", "Identificação", "Causa", "Local"}, detail)

	return wb.bytes()
}

// OccupancyRow is one active animal with its recorded location.
type OccupancyRow struct {
	Identificacao string
	Categoria     string
	Localizacao   string
}

func SummarizeOccupancy(rows []OccupancyRow) []LocalTotal {
	porLocal := map[string]int{}
	for _, r := range rows {
		local := normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao))
		porLocal[local]++
	}
	return sortLocalTotals(porLocal)
}

func (b *Builder) FetchOcupacao(ctx context.Context) ([]OccupancyRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT COALESCE(identificacao, ''), COALESCE(categoria, ''), COALESCE(localizacao, observacao, '')
		FROM animais
		WHERE ativo
		ORDER BY identificacao
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OccupancyRow
	for rows.Next() {
		var r OccupancyRow
		if err := rows.Scan(&r.Identificacao, &r.Categoria, &r.Localizacao); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildOcupacaoPiquetes(ctx context.Context) ([]byte, error) {
	animais, err := b.FetchOcupacao(ctx)
	if err != nil {
		return nil, err
	}

	ocupacao := SummarizeOccupancy(animais)

	wb := newWorkbook()
	wb.addResumo("Ocupação de Piquetes", normalize.Period{}, b.now(), []indicator{
		{"Animais ativos", len(animais)},
		{"Locais ocupados", len(ocupacao)},
	})

	porLocal := make([][]any, 0, len(ocupacao))
	barras := make([]chart.Value, 0, len(ocupacao))
	for _, t := range ocupacao {
		porLocal = append(porLocal, []any{t.Local, t.Total})
		barras = append(barras, chart.Value{Label: t.Local, Value: float64(t.Total)})
	}
	wb.addDetail("Ocupação", []string{"Local", "Cabeças"}, porLocal)

	detail := make([][]any, 0, len(animais))
	for _, r := range animais {
		detail = append(detail, []any{
			r.Identificacao, r.Categoria,
			normalize.NormalizeGroupingKey(normalize.ExtractLocationFromFreeText(r.Localizacao)),
		})
	}
	wb.addDetail("Animais", []string{"Identificação", "Categoria", "Local"}, detail)

	if b.charts != nil {
		wb.addPicture("Ocupação", "D2", b.charts.Bar("Cabeças por local", barras))
	}

	return wb.bytes()
}

// FemeaIARow is one insemination in the period, read through the probed date
// column.
type FemeaIARow struct {
	Data    time.Time
	Femea   string
	Touro   string
	Tecnico string
}

func (b *Builder) FetchFemeasIA(ctx context.Context, period normalize.Period) ([]FemeaIARow, error) {
	dateColumn := b.probe.InseminationDateColumn(ctx)
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(femea, ''), COALESCE(touro, ''), COALESCE(tecnico, '')
		FROM inseminacoes
		WHERE %s BETWEEN $1 AND $2
		ORDER BY %s
	`, dateColumn, dateColumn, dateColumn)

	rows, err := b.db.Query(ctx, query, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FemeaIARow
	for rows.Next() {
		var r FemeaIARow
		if err := rows.Scan(&r.Data, &r.Femea, &r.Touro, &r.Tecnico); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByBull tallies inseminations per bull, bucketing blanks.
func CountByBull(rows []FemeaIARow) map[string]int {
	porTouro := map[string]int{}
	for _, r := range rows {
		touro := r.Touro
		if touro == "" {
			touro = "Não informado"
		}
		porTouro[touro]++
	}
	return porTouro
}

func (b *Builder) buildFemeasIA(ctx context.Context, period normalize.Period) ([]byte, error) {
	out, err := b.FetchFemeasIA(ctx, period)
	if err != nil {
		return nil, err
	}
	porTouro := CountByBull(out)

	wb := newWorkbook()
	wb.addResumo("Fêmeas Inseminadas", period, b.now(), []indicator{
		{"Total de inseminações", len(out)},
		{"Touros utilizados", len(porTouro)},
	})

	detail := make([][]any, 0, len(out))
	for _, r := range out {
		detail = append(detail, []any{normalize.FormatDisplayDate(r.Data), r.Femea, r.Touro, r.Tecnico})
	}
	wb.addDetail("Inseminações", []string{"Data", "Fêmea", "Touro", "Técnico"}, detail)

	porTouroRows := make([][]any, 0, len(porTouro))
	for touro, total := range porTouro {
		porTouroRows = append(porTouroRows, []any{touro, total})
	}
	sort.Slice(porTouroRows, func(i, j int) bool {
		return porTouroRows[i][1].(int) > porTouroRows[j][1].(int)
	})
	wb.addDetail("Por Touro", []string{"Touro", "Inseminações"}, porTouroRows)

	return wb.bytes()
}
