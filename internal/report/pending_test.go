package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebanho/backend/internal/normalize"
)

func TestMatchPendingBirthsConjunctiveRule(t *testing.T) {
	today := day("2024-10-01")
	cobertura := day("2024-01-05")

	gestacoes := []GestacaoRec{
		{ID: 1, Receptora: "RGN 007", Serie: "RGN", RG: "007", DataCobertura: cobertura},
		// Identity matches but the TE date differs: excluded.
		{ID: 2, Receptora: "RGN 008", Serie: "RGN", RG: "008", DataCobertura: day("2024-02-01")},
		// No invoice at all: excluded.
		{ID: 3, Receptora: "XYZ 1", Serie: "XYZ", RG: "1", DataCobertura: cobertura},
		// Already calved: excluded even though everything else matches.
		{ID: 4, Receptora: "RGN 009", Serie: "RGN", RG: "009", DataCobertura: cobertura},
		// Terminal status: excluded.
		{ID: 5, Receptora: "RGN 010", Serie: "RGN", RG: "010", DataCobertura: cobertura, Status: "Aborto"},
	}
	notas := []InvoiceTE{
		{Nome: "RGN 7", Serie: "", RG: "", DataTE: cobertura},
		{Nome: "", Serie: "RGN", RG: "8", DataTE: cobertura},
		{Nome: "RGN 9", Serie: "RGN", RG: "9", DataTE: cobertura},
		{Nome: "RGN 10", Serie: "RGN", RG: "10", DataTE: cobertura},
	}
	nascidas := map[int64]bool{4: true}

	pendentes := MatchPendingBirths(gestacoes, notas, nascidas, today)
	require.Len(t, pendentes, 1)

	p := pendentes[0]
	assert.Equal(t, int64(1), p.Gestacao.ID)
	assert.Equal(t, cobertura.AddDate(0, 0, 285), p.PartoPrevisto)
}

func TestBirthSituationBuckets(t *testing.T) {
	today := day("2024-06-15")
	mk := func(cobertura string) []GestacaoRec {
		return []GestacaoRec{{ID: 1, Receptora: "R", Serie: "S", RG: "1", DataCobertura: day(cobertura)}}
	}
	notas := func(cobertura string) []InvoiceTE {
		return []InvoiceTE{{Serie: "S", RG: "1", DataTE: day(cobertura)}}
	}

	// Due 2024-06-01, already past: overdue.
	p := MatchPendingBirths(mk("2023-08-21"), notas("2023-08-21"), nil, today)
	require.Len(t, p, 1)
	assert.Equal(t, "Atrasado", p[0].Situacao)

	// Due 2024-07-01, inside the 30-day window.
	p = MatchPendingBirths(mk("2023-09-20"), notas("2023-09-20"), nil, today)
	require.Len(t, p, 1)
	assert.Equal(t, "Próximo", p[0].Situacao)

	// Due far in the future.
	p = MatchPendingBirths(mk("2024-05-01"), notas("2024-05-01"), nil, today)
	require.Len(t, p, 1)
	assert.Equal(t, "No prazo", p[0].Situacao)
}

func TestFilterPendingDGThreeSourceExclusion(t *testing.T) {
	today := day("2024-05-01")
	candidatas := []ReceptoraCandidata{
		{Nome: "RGN 100", Serie: "RGN", RG: "100", DataChegada: day("2024-04-01")},
		{Nome: "RGN 200", Serie: "RGN", RG: "200", DataChegada: day("2024-04-20")},
	}

	// Evidence recorded with a leading zero still excludes the candidate.
	evidencia := normalize.KeySet{}
	evidencia.Merge(normalize.BuildIdentityKeys("rgn", "0100"))

	pendentes := FilterPendingDG(candidatas, evidencia, today)
	require.Len(t, pendentes, 1)
	assert.Equal(t, "RGN 200", pendentes[0].Receptora.Nome)
	// Arrived 2024-04-20, DG expected +15 on 2024-05-05: within the 7-day window.
	assert.Equal(t, day("2024-05-05"), pendentes[0].DGPrevisto)
	assert.Equal(t, "Próximo", pendentes[0].Situacao)
}

func TestFilterPendingDGSituacoes(t *testing.T) {
	today := day("2024-05-01")
	candidatas := []ReceptoraCandidata{
		{Nome: "A", DataChegada: day("2024-04-01")}, // expected 2024-04-16: overdue
		{Nome: "B", DataChegada: day("2024-04-30")}, // expected 2024-05-15: on time
	}
	pendentes := FilterPendingDG(candidatas, normalize.KeySet{}, today)
	require.Len(t, pendentes, 2)
	assert.Equal(t, "Atrasado", pendentes[0].Situacao)
	assert.Equal(t, "No prazo", pendentes[1].Situacao)
}
