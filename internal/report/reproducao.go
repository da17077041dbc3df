package report

import (
	"context"
	"sort"
	"time"

	"rebanho/backend/internal/normalize"
)

// FIVRow is one oocyte collection.
type FIVRow struct {
	Data           time.Time
	Doadora        string
	Touro          string
	OocitosViaveis int
	OocitosTotais  int
	Embrioes       int
}

type FIVSummary struct {
	Coletas        int
	OocitosViaveis int
	OocitosTotais  int
	Embrioes       int
}

func SummarizeFIV(rows []FIVRow) FIVSummary {
	s := FIVSummary{Coletas: len(rows)}
	for _, r := range rows {
		s.OocitosViaveis += r.OocitosViaveis
		s.OocitosTotais += r.OocitosTotais
		s.Embrioes += r.Embrioes
	}
	return s
}

func (b *Builder) FetchColetasFIV(ctx context.Context, period normalize.Period) ([]FIVRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_coleta, COALESCE(doadora, ''), COALESCE(touro, ''),
			COALESCE(oocitos_viaveis, 0), COALESCE(oocitos_totais, 0), COALESCE(embrioes, 0)
		FROM coletas_fiv
		WHERE data_coleta BETWEEN $1 AND $2
		ORDER BY data_coleta
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FIVRow
	for rows.Next() {
		var r FIVRow
		if err := rows.Scan(&r.Data, &r.Doadora, &r.Touro, &r.OocitosViaveis, &r.OocitosTotais, &r.Embrioes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildColetasFIV(ctx context.Context, period normalize.Period) ([]byte, error) {
	coletas, err := b.FetchColetasFIV(ctx, period)
	if err != nil {
		return nil, err
	}

	s := SummarizeFIV(coletas)

	wb := newWorkbook()
	wb.addResumo("Coletas FIV", period, b.now(), []indicator{
		{"Coletas", s.Coletas},
		{"Oócitos viáveis", s.OocitosViaveis},
		{"Oócitos totais", s.OocitosTotais},
		{"Taxa de viabilidade", FormatRate(s.OocitosViaveis, s.OocitosTotais)},
		{"Embriões", s.Embrioes},
	})

	detail := make([][]any, 0, len(coletas))
	for _, r := range coletas {
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Doadora, r.Touro,
			r.OocitosViaveis, r.OocitosTotais, r.Embrioes,
		})
	}
	wb.addDetail("Coletas", []string{"Data", "Doadora", "Touro", "Oócitos Viáveis", "Oócitos Totais", "Embriões"}, detail)

	return wb.bytes()
}

// TERow is one embryo transfer in the period.
type TERow struct {
	Data            time.Time
	Receptora       string
	Doadora         string
	Touro           string
	DataDiagnostico *time.Time
	Resultado       string
}

type TESummary struct {
	Total      int
	Prenhes    int
	Vazias     int
	Aguardando int
}

func SummarizeTE(rows []TERow) TESummary {
	s := TESummary{Total: len(rows)}
	for _, r := range rows {
		switch {
		case r.DataDiagnostico == nil:
			s.Aguardando++
		case r.Resultado == "Prenhe" || r.Resultado == "prenhe" || r.Resultado == "Positivo":
			s.Prenhes++
		default:
			s.Vazias++
		}
	}
	return s
}

func (b *Builder) FetchTransferencias(ctx context.Context, period normalize.Period) ([]TERow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_te, COALESCE(receptora, ''), COALESCE(doadora, ''), COALESCE(touro, ''),
			data_diagnostico, COALESCE(resultado, '')
		FROM transferencias_embrioes
		WHERE data_te BETWEEN $1 AND $2
		ORDER BY data_te
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TERow
	for rows.Next() {
		var r TERow
		if err := rows.Scan(&r.Data, &r.Receptora, &r.Doadora, &r.Touro, &r.DataDiagnostico, &r.Resultado); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildTransferencias(ctx context.Context, period normalize.Period) ([]byte, error) {
	tes, err := b.FetchTransferencias(ctx, period)
	if err != nil {
		return nil, err
	}

	s := SummarizeTE(tes)
	diagnosticadas := s.Prenhes + s.Vazias

	wb := newWorkbook()
	wb.addResumo("Transferências de Embrião", period, b.now(), []indicator{
		{"Transferências", s.Total},
		{"Prenhes", s.Prenhes},
		{"Vazias", s.Vazias},
		{"Aguardando diagnóstico", s.Aguardando},
		{"Taxa de prenhez", FormatRate(s.Prenhes, diagnosticadas)},
	})

	detail := make([][]any, 0, len(tes))
	for _, r := range tes {
		diagnostico := ""
		if r.DataDiagnostico != nil {
			diagnostico = normalize.FormatDisplayDate(*r.DataDiagnostico)
		}
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Receptora, r.Doadora, r.Touro,
			diagnostico, r.Resultado,
		})
	}
	wb.addDetail("Transferências", []string{"Data", "Receptora", "Doadora", "Touro", "Diagnóstico", "Resultado"}, detail)

	return wb.bytes()
}

func (b *Builder) FetchGestacoesAbertas(ctx context.Context) ([]GestacaoRec, error) {
	rows, err := b.db.Query(ctx, `
		SELECT id, COALESCE(receptora, ''), COALESCE(serie, ''), COALESCE(rg, ''),
			data_cobertura, COALESCE(status, '')
		FROM gestacoes
		WHERE data_cobertura IS NOT NULL
		ORDER BY data_cobertura
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GestacaoRec
	for rows.Next() {
		var g GestacaoRec
		if err := rows.Scan(&g.ID, &g.Receptora, &g.Serie, &g.RG, &g.DataCobertura, &g.Status); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (b *Builder) buildGestacoes(ctx context.Context, period normalize.Period) ([]byte, error) {
	gestacoes, err := b.FetchGestacoesAbertas(ctx)
	if err != nil {
		return nil, err
	}

	today := b.now()
	abertas := 0
	atrasadas := 0
	proximas := 0

	detail := make([][]any, 0, len(gestacoes))
	for _, g := range gestacoes {
		if terminalGestationStatuses[g.Status] {
			continue
		}
		abertas++
		parto := g.DataCobertura.AddDate(0, 0, diasGestacao)
		situacao := birthSituation(parto, today)
		switch situacao {
		case "Atrasado":
			atrasadas++
		case "Próximo":
			proximas++
		}
		detail = append(detail, []any{
			g.Receptora, g.Serie, g.RG,
			normalize.FormatDisplayDate(g.DataCobertura),
			normalize.FormatDisplayDate(parto),
			g.Status, situacao,
		})
	}

	wb := newWorkbook()
	wb.addResumo("Gestações", period, today, []indicator{
		{"Gestações em andamento", abertas},
		{"Partos atrasados", atrasadas},
		{"Partos nos próximos 30 dias", proximas},
	})
	wb.addDetail("Gestações", []string{"Receptora", "Série", "RG", "Cobertura", "Parto Previsto", "Status", "Situação"}, detail)

	return wb.bytes()
}

// ExamRow is one andrological exam.
type ExamRow struct {
	Data      time.Time
	Touro     string
	CE        *float64
	Resultado string
}

type ExamSummary struct {
	Total     int
	Aprovados int
	CEMin     float64
	CEMax     float64
	CEMedia   float64
}

func SummarizeExams(rows []ExamRow) ExamSummary {
	s := ExamSummary{Total: len(rows)}
	var soma float64
	var medidos int
	for _, r := range rows {
		if r.Resultado == "Aprovado" || r.Resultado == "Apto" {
			s.Aprovados++
		}
		if r.CE == nil {
			continue
		}
		ce := *r.CE
		if medidos == 0 || ce < s.CEMin {
			s.CEMin = ce
		}
		if medidos == 0 || ce > s.CEMax {
			s.CEMax = ce
		}
		soma += ce
		medidos++
	}
	if medidos > 0 {
		s.CEMedia = soma / float64(medidos)
	}
	return s
}

func (b *Builder) FetchExames(ctx context.Context, period normalize.Period) ([]ExamRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_exame, COALESCE(touro, ''), circunferencia_escrotal, COALESCE(resultado, '')
		FROM exames_andrologicos
		WHERE data_exame BETWEEN $1 AND $2
		ORDER BY data_exame
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExamRow
	for rows.Next() {
		var r ExamRow
		if err := rows.Scan(&r.Data, &r.Touro, &r.CE, &r.Resultado); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildExames(ctx context.Context, period normalize.Period) ([]byte, error) {
	exames, err := b.FetchExames(ctx, period)
	if err != nil {
		return nil, err
	}

	s := SummarizeExams(exames)

	wb := newWorkbook()
	wb.addResumo("Exames Andrológicos", period, b.now(), []indicator{
		{"Exames", s.Total},
		{"Aprovados", s.Aprovados},
		{"Taxa de aprovação", FormatRate(s.Aprovados, s.Total)},
		{"CE mínima (cm)", s.CEMin},
		{"CE máxima (cm)", s.CEMax},
		{"CE média (cm)", s.CEMedia},
	})

	detail := make([][]any, 0, len(exames))
	for _, r := range exames {
		var ce any
		if r.CE != nil {
			ce = *r.CE
		} else {
			ce = ""
		}
		detail = append(detail, []any{normalize.FormatDisplayDate(r.Data), r.Touro, ce, r.Resultado})
	}
	wb.addDetail("Exames", []string{"Data", "Touro", "CE (cm)", "Resultado"}, detail)

	return wb.bytes()
}

// CalendarEvent is one upcoming reproductive event in the horizon.
type CalendarEvent struct {
	Data    time.Time
	Tipo    string
	Animal  string
	Detalhe string
}

// BuildReproductiveCalendar derives DG, calving and dry-off expectations from
// open gestations and undiagnosed transfers, bounded to the period.
func BuildReproductiveCalendar(gestacoes []GestacaoRec, tes []TERow, period normalize.Period) []CalendarEvent {
	var events []CalendarEvent
	add := func(data time.Time, tipo, animal, detalhe string) {
		d := normalize.ToStorageDate(data)
		if d == "" || d < period.StartDate || d > period.EndDate {
			return
		}
		events = append(events, CalendarEvent{Data: data, Tipo: tipo, Animal: animal, Detalhe: detalhe})
	}

	for _, g := range gestacoes {
		if terminalGestationStatuses[g.Status] {
			continue
		}
		add(g.DataCobertura.AddDate(0, 0, diasGestacaoSeca), "Secagem", g.Receptora,
			"Cobertura em "+normalize.FormatDisplayDate(g.DataCobertura))
		add(g.DataCobertura.AddDate(0, 0, diasGestacao), "Parto previsto", g.Receptora,
			"Cobertura em "+normalize.FormatDisplayDate(g.DataCobertura))
	}
	for _, te := range tes {
		if te.DataDiagnostico != nil {
			continue
		}
		add(te.Data.AddDate(0, 0, diasAteDG), "DG previsto", te.Receptora,
			"TE em "+normalize.FormatDisplayDate(te.Data))
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Data.Before(events[j].Data) })
	return events
}

func (b *Builder) FetchTEsSemDiagnostico(ctx context.Context) ([]TERow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_te, COALESCE(receptora, ''), data_diagnostico
		FROM transferencias_embrioes
		WHERE data_diagnostico IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TERow
	for rows.Next() {
		var r TERow
		if err := rows.Scan(&r.Data, &r.Receptora, &r.DataDiagnostico); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) FetchCalendario(ctx context.Context, period normalize.Period) ([]CalendarEvent, error) {
	gestacoes, err := b.FetchGestacoesAbertas(ctx)
	if err != nil {
		return nil, err
	}
	tes, err := b.FetchTEsSemDiagnostico(ctx)
	if err != nil {
		return nil, err
	}
	return BuildReproductiveCalendar(gestacoes, tes, period), nil
}

func (b *Builder) buildCalendario(ctx context.Context, period normalize.Period) ([]byte, error) {
	events, err := b.FetchCalendario(ctx, period)
	if err != nil {
		return nil, err
	}

	porTipo := map[string]int{}
	for _, e := range events {
		porTipo[e.Tipo]++
	}

	wb := newWorkbook()
	wb.addResumo("Calendário Reprodutivo", period, b.now(), []indicator{
		{"Eventos no período", len(events)},
		{"DGs previstos", porTipo["DG previsto"]},
		{"Partos previstos", porTipo["Parto previsto"]},
		{"Secagens", porTipo["Secagem"]},
	})

	detail := make([][]any, 0, len(events))
	for _, e := range events {
		detail = append(detail, []any{normalize.FormatDisplayDate(e.Data), e.Tipo, e.Animal, e.Detalhe})
	}
	wb.addDetail("Calendário", []string{"Data", "Evento", "Animal", "Detalhe"}, detail)

	return wb.bytes()
}
