package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/database"
	"rebanho/backend/internal/normalize"
)

// Builder generates report workbooks. Fetching is separated from aggregation
// and rendering so the numeric logic is testable without a database.
type Builder struct {
	db     database.Querier
	probe  *database.SchemaProbe
	charts chart.Renderer
	log    *zap.Logger
	now    func() time.Time
}

func NewBuilder(db database.Querier, probe *database.SchemaProbe, charts chart.Renderer, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		db:     db,
		probe:  probe,
		charts: charts,
		log:    log,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests of "today"-relative reports.
func (b *Builder) WithNow(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Generate builds the workbook for one report type over the given period.
func (b *Builder) Generate(ctx context.Context, tag Tag, period normalize.Period) (GeneratedReport, error) {
	entry, ok := Lookup(tag)
	if !ok {
		return GeneratedReport{}, fmt.Errorf("tipo de relatório desconhecido: %s", tag)
	}

	var (
		data []byte
		err  error
	)
	switch tag {
	case TagNFEntrada:
		data, err = b.buildNF(ctx, period, "entrada", entry.Title)
	case TagNFSaida:
		data, err = b.buildNF(ctx, period, "saida", entry.Title)
	case TagNascimentos:
		data, err = b.buildNascimentos(ctx, period)
	case TagMortes:
		data, err = b.buildMortes(ctx, period)
	case TagReceptorasChegadas:
		data, err = b.buildReceptorasChegadas(ctx, period)
	case TagReceptorasFaltamParir:
		data, err = b.buildReceptorasFaltamParir(ctx)
	case TagReceptorasFaltamDG:
		data, err = b.buildReceptorasFaltamDG(ctx)
	case TagFemeasIA:
		data, err = b.buildFemeasIA(ctx, period)
	case TagOcupacaoPiquetes:
		data, err = b.buildOcupacaoPiquetes(ctx)
	case TagPesagens:
		data, err = b.buildPesagens(ctx, period, true)
	case TagResumoPesagens:
		data, err = b.buildPesagens(ctx, period, false)
	case TagColetasFIV:
		data, err = b.buildColetasFIV(ctx, period)
	case TagTransferenciasEmbrioes:
		data, err = b.buildTransferencias(ctx, period)
	case TagGestacoes:
		data, err = b.buildGestacoes(ctx, period)
	case TagExamesAndrologicos:
		data, err = b.buildExames(ctx, period)
	case TagMovimentacoes:
		data, err = b.buildMovimentacoes(ctx, period)
	case TagEstoqueSemen:
		data, err = b.buildEstoqueSemen(ctx)
	case TagVacinacoes:
		data, err = b.buildVacinacoes(ctx, period)
	case TagGenealogia:
		data, err = b.buildGenealogia(ctx)
	case TagCalendarioReprodutivo:
		data, err = b.buildCalendario(ctx, period)
	default:
		return GeneratedReport{}, fmt.Errorf("tipo de relatório sem gerador: %s", tag)
	}
	if err != nil {
		return GeneratedReport{}, fmt.Errorf("relatório %s: %w", tag, err)
	}

	return GeneratedReport{
		Tag:      tag,
		Filename: reportFilename(entry.Slug, period),
		Bytes:    data,
		MIMEType: WorkbookMIMEType,
	}, nil
}
