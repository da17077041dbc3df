package database

import (
	"context"
	"sync"
)

// The insemination table was renamed across application versions, taking the
// date column with it. Every query that touches insemination dates goes
// through this probe so they all agree on the resolved name.
var inseminationColumnCandidates = []string{"data_ia", "data_inseminacao", "data"}

const defaultInseminationColumn = "data_ia"

type SchemaProbe struct {
	db Querier

	once   sync.Once
	column string
}

func NewSchemaProbe(db Querier) *SchemaProbe {
	return &SchemaProbe{db: db}
}

// InseminationDateColumn resolves which column of the inseminations table
// holds the insemination date, memoized for the process lifetime. A failed
// probe falls back to the current name rather than erroring.
func (p *SchemaProbe) InseminationDateColumn(ctx context.Context) string {
	p.once.Do(func() {
		p.column = p.probe(ctx)
	})
	return p.column
}

func (p *SchemaProbe) probe(ctx context.Context) string {
	rows, err := p.db.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = 'inseminacoes'
	`)
	if err != nil {
		return defaultInseminationColumn
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return defaultInseminationColumn
		}
		present[name] = true
	}
	if rows.Err() != nil {
		return defaultInseminationColumn
	}

	for _, candidate := range inseminationColumnCandidates {
		if present[candidate] {
			return candidate
		}
	}
	return defaultInseminationColumn
}
