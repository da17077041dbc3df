package report

import (
	"context"
	"time"

	"rebanho/backend/internal/normalize"
)

// VaccinationRow is one vaccine application.
type VaccinationRow struct {
	Data          time.Time
	Identificacao string
	Vacina        string
	ProximaDose   *time.Time
}

type VaccinationSummary struct {
	Aplicacoes       int
	VacinasDistintas int
	ReforcosProximos int
}

// SummarizeVaccinations counts applications, distinct vaccines and booster
// doses falling inside the next 30 days.
func SummarizeVaccinations(rows []VaccinationRow, today time.Time) VaccinationSummary {
	s := VaccinationSummary{Aplicacoes: len(rows)}
	porVacina := map[string]int{}
	for _, r := range rows {
		porVacina[r.Vacina]++
		if r.ProximaDose != nil && !r.ProximaDose.Before(today) &&
			!r.ProximaDose.After(today.AddDate(0, 0, 30)) {
			s.ReforcosProximos++
		}
	}
	s.VacinasDistintas = len(porVacina)
	return s
}

func (b *Builder) FetchVacinacoes(ctx context.Context, period normalize.Period) ([]VaccinationRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_aplicacao, COALESCE(identificacao, ''), COALESCE(vacina, ''), proxima_dose
		FROM vacinacoes
		WHERE data_aplicacao BETWEEN $1 AND $2
		ORDER BY data_aplicacao
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VaccinationRow
	for rows.Next() {
		var r VaccinationRow
		if err := rows.Scan(&r.Data, &r.Identificacao, &r.Vacina, &r.ProximaDose); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildVacinacoes(ctx context.Context, period normalize.Period) ([]byte, error) {
	aplicadas, err := b.FetchVacinacoes(ctx, period)
	if err != nil {
		return nil, err
	}
	today := b.now()
	s := SummarizeVaccinations(aplicadas, today)

	wb := newWorkbook()
	wb.addResumo("Vacinações", period, today, []indicator{
		{"Aplicações no período", s.Aplicacoes},
		{"Vacinas distintas", s.VacinasDistintas},
		{"Reforços nos próximos 30 dias", s.ReforcosProximos},
	})

	detail := make([][]any, 0, len(aplicadas))
	for _, r := range aplicadas {
		proxima := ""
		if r.ProximaDose != nil {
			proxima = normalize.FormatDisplayDate(*r.ProximaDose)
		}
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Identificacao, r.Vacina, proxima,
		})
	}
	wb.addDetail("Vacinações", []string{"Data", "Identificação", "Vacina", "Próxima Dose"}, detail)

	return wb.bytes()
}

// GenealogyRow is one animal's lineage.
type GenealogyRow struct {
	Identificacao string
	Sexo          string
	Pai           string
	Mae           string
	AvoPaterno    string
	AvoMaterno    string
}

func (b *Builder) FetchGenealogia(ctx context.Context) ([]GenealogyRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT COALESCE(identificacao, ''), COALESCE(sexo, ''), COALESCE(pai, ''),
			COALESCE(mae, ''), COALESCE(avo_paterno, ''), COALESCE(avo_materno, '')
		FROM animais
		WHERE ativo
		ORDER BY identificacao
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenealogyRow
	for rows.Next() {
		var r GenealogyRow
		if err := rows.Scan(&r.Identificacao, &r.Sexo, &r.Pai, &r.Mae, &r.AvoPaterno, &r.AvoMaterno); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildGenealogia(ctx context.Context) ([]byte, error) {
	linhagens, err := b.FetchGenealogia(ctx)
	if err != nil {
		return nil, err
	}

	comPai, comMae := 0, 0
	for _, r := range linhagens {
		if r.Pai != "" {
			comPai++
		}
		if r.Mae != "" {
			comMae++
		}
	}

	wb := newWorkbook()
	wb.addResumo("Genealogia", normalize.Period{}, b.now(), []indicator{
		{"Animais ativos", len(linhagens)},
		{"Com pai registrado", comPai},
		{"Com mãe registrada", comMae},
	})

	detail := make([][]any, 0, len(linhagens))
	for _, r := range linhagens {
		detail = append(detail, []any{r.Identificacao, r.Sexo, r.Pai, r.Mae, r.AvoPaterno, r.AvoMaterno})
	}
	wb.addDetail("Genealogia", []string{"Identificação", "Sexo", "Pai", "Mãe", "Avô Paterno", "Avô Materno"}, detail)

	return wb.bytes()
}
