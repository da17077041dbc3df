package report

import (
	"context"
	"time"

	"rebanho/backend/internal/normalize"
)

// Day offsets encoding the herd's reproductive expectations. Changing these
// silently changes report totals; they match the dashboard.
const (
	diasGestacao     = 285
	diasGestacaoSeca = 276
	diasAteDG        = 15
	janelaDGDias     = 7
	janelaPartoDias  = 30
)

var terminalGestationStatuses = map[string]bool{
	"Nasceu":    true,
	"Cancelada": true,
	"Perdeu":    true,
	"Aborto":    true,
	"Abortou":   true,
	"Morreu":    true,
}

// ReceptoraChegadaRow is one receptora arrival resolved from entry invoices.
type ReceptoraChegadaRow struct {
	DataChegada time.Time
	Nome        string
	Serie       string
	RG          string
	Origem      string
	Item        normalize.InvoiceItem
}

func (b *Builder) FetchReceptorasChegadas(ctx context.Context, period normalize.Period) ([]ReceptoraChegadaRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_chegada, COALESCE(nome, ''), COALESCE(serie, ''), COALESCE(rg, ''),
			COALESCE(origem, ''), quantidade
		FROM receptoras_nf
		WHERE data_chegada BETWEEN $1 AND $2
		ORDER BY data_chegada
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReceptoraChegadaRow
	for rows.Next() {
		var r ReceptoraChegadaRow
		var quantidade *int
		if err := rows.Scan(&r.DataChegada, &r.Nome, &r.Serie, &r.RG, &r.Origem, &quantidade); err != nil {
			return nil, err
		}
		r.Item = normalize.InvoiceItem{Quantidade: quantidade}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildReceptorasChegadas(ctx context.Context, period normalize.Period) ([]byte, error) {
	rows, err := b.FetchReceptorasChegadas(ctx, period)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, r := range rows {
		total += normalize.ResolveInvoiceQuantity(r.Item)
	}

	wb := newWorkbook()
	wb.addResumo("Receptoras Chegadas", period, b.now(), []indicator{
		{"Lotes recebidos", len(rows)},
		{"Receptoras", total},
	})

	detail := make([][]any, 0, len(rows))
	for _, r := range rows {
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.DataChegada), r.Nome, r.Serie, r.RG,
			r.Origem, normalize.ResolveInvoiceQuantity(r.Item),
		})
	}
	wb.addDetail("Chegadas", []string{"Data", "Nome", "Série", "RG", "Origem", "Quantidade"}, detail)

	return wb.bytes()
}

// GestacaoRec is one gestation record as matched against invoices and births.
type GestacaoRec struct {
	ID            int64
	Receptora     string
	Serie         string
	RG            string
	DataCobertura time.Time
	Status        string
}

// InvoiceTE is the receptora-purchase side of the pending-birth join.
type InvoiceTE struct {
	Nome   string
	Serie  string
	RG     string
	DataTE time.Time
}

// PendingBirthRow is one gestation still expected to calve.
type PendingBirthRow struct {
	Gestacao      GestacaoRec
	PartoPrevisto time.Time
	Situacao      string
}

// MatchPendingBirths applies the four-way conjunctive rule: the gestation
// must join a purchase invoice by name or by (series, registration), the
// breeding date must equal the invoice TE date, no birth may reference the
// gestation, and the status must not be terminal.
func MatchPendingBirths(gestacoes []GestacaoRec, notas []InvoiceTE, nascidas map[int64]bool, today time.Time) []PendingBirthRow {
	var out []PendingBirthRow
	for _, g := range gestacoes {
		if nascidas[g.ID] || terminalGestationStatuses[g.Status] {
			continue
		}
		keys := normalize.BuildIdentityKeys(g.Serie, g.RG)
		keys.Merge(normalize.BuildTattooKeys(g.Receptora))

		matched := false
		for _, nf := range notas {
			nfKeys := normalize.BuildIdentityKeys(nf.Serie, nf.RG)
			nfKeys.Merge(normalize.BuildTattooKeys(nf.Nome))
			if !keys.Intersects(nfKeys) {
				continue
			}
			if normalize.ToStorageDate(g.DataCobertura) != normalize.ToStorageDate(nf.DataTE) {
				continue
			}
			matched = true
			break
		}
		if !matched {
			continue
		}

		parto := g.DataCobertura.AddDate(0, 0, diasGestacao)
		out = append(out, PendingBirthRow{
			Gestacao:      g,
			PartoPrevisto: parto,
			Situacao:      birthSituation(parto, today),
		})
	}
	return out
}

func birthSituation(parto, today time.Time) string {
	switch {
	case parto.Before(today):
		return "Atrasado"
	case !parto.After(today.AddDate(0, 0, janelaPartoDias)):
		return "Próximo"
	default:
		return "No prazo"
	}
}

func (b *Builder) FetchPendingBirths(ctx context.Context) ([]PendingBirthRow, error) {
	gestacoes, err := b.FetchGestacoesAbertas(ctx)
	if err != nil {
		return nil, err
	}

	nfRows, err := b.db.Query(ctx, `
		SELECT COALESCE(nome, ''), COALESCE(serie, ''), COALESCE(rg, ''), data_te
		FROM receptoras_nf
		WHERE data_te IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer nfRows.Close()

	var notas []InvoiceTE
	for nfRows.Next() {
		var n InvoiceTE
		if err := nfRows.Scan(&n.Nome, &n.Serie, &n.RG, &n.DataTE); err != nil {
			return nil, err
		}
		notas = append(notas, n)
	}
	if err := nfRows.Err(); err != nil {
		return nil, err
	}

	birthRows, err := b.db.Query(ctx, `SELECT gestacao_id FROM nascimentos WHERE gestacao_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer birthRows.Close()

	nascidas := map[int64]bool{}
	for birthRows.Next() {
		var id int64
		if err := birthRows.Scan(&id); err != nil {
			return nil, err
		}
		nascidas[id] = true
	}
	if err := birthRows.Err(); err != nil {
		return nil, err
	}

	return MatchPendingBirths(gestacoes, notas, nascidas, b.now()), nil
}

// CountSituations tallies the overdue/upcoming buckets of a situation column.
func CountSituations(situacoes []string) (atrasadas, proximas int) {
	for _, s := range situacoes {
		switch s {
		case "Atrasado":
			atrasadas++
		case "Próximo":
			proximas++
		}
	}
	return atrasadas, proximas
}

func (b *Builder) buildReceptorasFaltamParir(ctx context.Context) ([]byte, error) {
	pendentes, err := b.FetchPendingBirths(ctx)
	if err != nil {
		return nil, err
	}
	today := b.now()

	situacoes := make([]string, 0, len(pendentes))
	for _, p := range pendentes {
		situacoes = append(situacoes, p.Situacao)
	}
	atrasadas, proximas := CountSituations(situacoes)

	wb := newWorkbook()
	wb.addResumo("Receptoras que Faltam Parir", normalize.Period{}, today, []indicator{
		{"Partos pendentes", len(pendentes)},
		{"Atrasados", atrasadas},
		{"Próximos 30 dias", proximas},
	})

	detail := make([][]any, 0, len(pendentes))
	for _, p := range pendentes {
		detail = append(detail, []any{
			p.Gestacao.Receptora, p.Gestacao.Serie, p.Gestacao.RG,
			normalize.FormatDisplayDate(p.Gestacao.DataCobertura),
			normalize.FormatDisplayDate(p.PartoPrevisto),
			p.Situacao,
		})
	}
	wb.addDetail("Faltam Parir", []string{"Receptora", "Série", "RG", "Cobertura", "Parto Previsto", "Situação"}, detail)

	return wb.bytes()
}

// ReceptoraCandidata is a receptora with an undiagnosed embryo transfer.
type ReceptoraCandidata struct {
	Nome        string
	Serie       string
	RG          string
	DataChegada time.Time
}

// PendingDGRow is one receptora still awaiting pregnancy diagnosis.
type PendingDGRow struct {
	Receptora  ReceptoraCandidata
	DGPrevisto time.Time
	Situacao   string
}

// FilterPendingDG excludes every candidate whose identity keys intersect the
// DG-evidence union, then derives expectation buckets from the arrival date.
func FilterPendingDG(candidatas []ReceptoraCandidata, evidencia normalize.KeySet, today time.Time) []PendingDGRow {
	var out []PendingDGRow
	for _, c := range candidatas {
		keys := normalize.BuildIdentityKeys(c.Serie, c.RG)
		keys.Merge(normalize.BuildTattooKeys(c.Nome))
		if keys.Intersects(evidencia) {
			continue
		}

		previsto := c.DataChegada.AddDate(0, 0, diasAteDG)
		situacao := "No prazo"
		switch {
		case previsto.Before(today):
			situacao = "Atrasado"
		case !previsto.After(today.AddDate(0, 0, janelaDGDias)):
			situacao = "Próximo"
		}
		out = append(out, PendingDGRow{Receptora: c, DGPrevisto: previsto, Situacao: situacao})
	}
	return out
}

// FetchDGEvidence unions the three DG-evidence sources: the animals table,
// diagnosed embryo transfers, and DG history occurrences. A receptora found
// in any of them already has a diagnosis.
func (b *Builder) FetchDGEvidence(ctx context.Context) (normalize.KeySet, error) {
	evidencia := normalize.KeySet{}

	animalRows, err := b.db.Query(ctx, `
		SELECT COALESCE(serie, ''), COALESCE(rg, ''), COALESCE(tatuagem, '')
		FROM animais
		WHERE data_dg IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer animalRows.Close()
	for animalRows.Next() {
		var serie, rg, tatuagem string
		if err := animalRows.Scan(&serie, &rg, &tatuagem); err != nil {
			return nil, err
		}
		evidencia.Merge(normalize.BuildIdentityKeys(serie, rg))
		evidencia.Merge(normalize.BuildTattooKeys(tatuagem))
	}
	if err := animalRows.Err(); err != nil {
		return nil, err
	}

	teRows, err := b.db.Query(ctx, `
		SELECT COALESCE(receptora, ''), COALESCE(receptora_serie, ''), COALESCE(receptora_rg, '')
		FROM transferencias_embrioes
		WHERE data_diagnostico IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer teRows.Close()
	for teRows.Next() {
		var nome, serie, rg string
		if err := teRows.Scan(&nome, &serie, &rg); err != nil {
			return nil, err
		}
		evidencia.Merge(normalize.BuildIdentityKeys(serie, rg))
		evidencia.Merge(normalize.BuildTattooKeys(nome))
	}
	if err := teRows.Err(); err != nil {
		return nil, err
	}

	histRows, err := b.db.Query(ctx, `
		SELECT COALESCE(animal, '')
		FROM historico_ocorrencias
		WHERE tipo = 'DG'
	`)
	if err != nil {
		return nil, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var animal string
		if err := histRows.Scan(&animal); err != nil {
			return nil, err
		}
		evidencia.Merge(normalize.BuildTattooKeys(animal))
	}
	return evidencia, histRows.Err()
}

func (b *Builder) FetchPendingDG(ctx context.Context) ([]PendingDGRow, error) {
	candidataRows, err := b.db.Query(ctx, `
		SELECT COALESCE(nome, ''), COALESCE(serie, ''), COALESCE(rg, ''), data_chegada
		FROM receptoras_nf
		WHERE data_chegada IS NOT NULL
		ORDER BY data_chegada
	`)
	if err != nil {
		return nil, err
	}
	defer candidataRows.Close()

	var candidatas []ReceptoraCandidata
	for candidataRows.Next() {
		var c ReceptoraCandidata
		if err := candidataRows.Scan(&c.Nome, &c.Serie, &c.RG, &c.DataChegada); err != nil {
			return nil, err
		}
		candidatas = append(candidatas, c)
	}
	if err := candidataRows.Err(); err != nil {
		return nil, err
	}

	evidencia, err := b.FetchDGEvidence(ctx)
	if err != nil {
		return nil, err
	}

	return FilterPendingDG(candidatas, evidencia, b.now()), nil
}

func (b *Builder) buildReceptorasFaltamDG(ctx context.Context) ([]byte, error) {
	pendentes, err := b.FetchPendingDG(ctx)
	if err != nil {
		return nil, err
	}
	today := b.now()

	situacoes := make([]string, 0, len(pendentes))
	for _, p := range pendentes {
		situacoes = append(situacoes, p.Situacao)
	}
	atrasadas, proximas := CountSituations(situacoes)

	wb := newWorkbook()
	wb.addResumo("Receptoras que Faltam Diagnóstico", normalize.Period{}, today, []indicator{
		{"Diagnósticos pendentes", len(pendentes)},
		{"Atrasados", atrasadas},
		{"Próximos 7 dias", proximas},
	})

	detail := make([][]any, 0, len(pendentes))
	for _, p := range pendentes {
		detail = append(detail, []any{
			p.Receptora.Nome, p.Receptora.Serie, p.Receptora.RG,
			normalize.FormatDisplayDate(p.Receptora.DataChegada),
			normalize.FormatDisplayDate(p.DGPrevisto),
			p.Situacao,
		})
	}
	wb.addDetail("Faltam DG", []string{"Receptora", "Série", "RG", "Chegada", "DG Previsto", "Situação"}, detail)

	return wb.bytes()
}
