package report

// Tag identifies one report type. The catalog order is the order sections
// appear in the WhatsApp digest and attachments are listed in responses.
type Tag string

const (
	TagNFEntrada              Tag = "nf_entrada"
	TagNFSaida                Tag = "nf_saida"
	TagNascimentos            Tag = "nascimentos"
	TagMortes                 Tag = "mortes"
	TagReceptorasChegadas     Tag = "receptoras_chegadas"
	TagReceptorasFaltamParir  Tag = "receptoras_faltam_parir"
	TagReceptorasFaltamDG     Tag = "receptoras_faltam_diagnostico"
	TagFemeasIA               Tag = "femeas_ia"
	TagOcupacaoPiquetes       Tag = "ocupacao_piquetes"
	TagPesagens               Tag = "pesagens"
	TagResumoPesagens         Tag = "resumo_pesagens"
	TagColetasFIV             Tag = "coletas_fiv"
	TagTransferenciasEmbrioes Tag = "transferencias_embrioes"
	TagGestacoes              Tag = "gestacoes"
	TagExamesAndrologicos     Tag = "exames_andrologicos"
	TagMovimentacoes          Tag = "movimentacoes_financeiras"
	TagEstoqueSemen           Tag = "estoque_semen"
	TagVacinacoes             Tag = "vacinacoes"
	TagGenealogia             Tag = "genealogia"
	TagCalendarioReprodutivo  Tag = "calendario_reprodutivo"
)

type CatalogEntry struct {
	Tag   Tag    `json:"tag"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

var catalog = []CatalogEntry{
	{TagNFEntrada, "Notas Fiscais de Entrada", "nf-entrada"},
	{TagNFSaida, "Notas Fiscais de Saída", "nf-saida"},
	{TagNascimentos, "Nascimentos", "nascimentos"},
	{TagMortes, "Mortes", "mortes"},
	{TagReceptorasChegadas, "Receptoras Chegadas", "receptoras-chegadas"},
	{TagReceptorasFaltamParir, "Receptoras que Faltam Parir", "receptoras-faltam-parir"},
	{TagReceptorasFaltamDG, "Receptoras que Faltam Diagnóstico", "receptoras-faltam-diagnostico"},
	{TagFemeasIA, "Fêmeas Inseminadas", "femeas-ia"},
	{TagOcupacaoPiquetes, "Ocupação de Piquetes", "ocupacao-piquetes"},
	{TagPesagens, "Pesagens", "pesagens"},
	{TagResumoPesagens, "Resumo de Pesagens", "resumo-pesagens"},
	{TagColetasFIV, "Coletas FIV", "coletas-fiv"},
	{TagTransferenciasEmbrioes, "Transferências de Embrião", "transferencias-embrioes"},
	{TagGestacoes, "Gestações", "gestacoes"},
	{TagExamesAndrologicos, "Exames Andrológicos", "exames-andrologicos"},
	{TagMovimentacoes, "Movimentações Financeiras", "movimentacoes-financeiras"},
	{TagEstoqueSemen, "Estoque de Sêmen", "estoque-semen"},
	{TagVacinacoes, "Vacinações", "vacinacoes"},
	{TagGenealogia, "Genealogia", "genealogia"},
	{TagCalendarioReprodutivo, "Calendário Reprodutivo", "calendario-reprodutivo"},
}

// Catalog returns every known report type in digest order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves a tag to its catalog entry.
func Lookup(tag Tag) (CatalogEntry, bool) {
	for _, e := range catalog {
		if e.Tag == tag {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// OrderTags filters the requested tags down to known ones, in catalog order,
// deduplicated.
func OrderTags(requested []Tag) []Tag {
	want := map[Tag]bool{}
	for _, t := range requested {
		want[t] = true
	}
	var out []Tag
	for _, e := range catalog {
		if want[e.Tag] {
			out = append(out, e.Tag)
		}
	}
	return out
}
