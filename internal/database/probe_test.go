package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"rebanho/backend/internal/database/databasetest"
)

func TestInseminationDateColumnPrefersCurrentName(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "information_schema.columns", Rows: [][]any{
			{"id"}, {"data_inseminacao"}, {"data_ia"},
		}},
	}}
	probe := NewSchemaProbe(db)
	assert.Equal(t, "data_ia", probe.InseminationDateColumn(context.Background()))
}

func TestInseminationDateColumnLegacyName(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "information_schema.columns", Rows: [][]any{
			{"id"}, {"data_inseminacao"},
		}},
	}}
	probe := NewSchemaProbe(db)
	assert.Equal(t, "data_inseminacao", probe.InseminationDateColumn(context.Background()))
}

func TestInseminationDateColumnFallsBackOnError(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "information_schema.columns", Err: assert.AnError},
	}}
	probe := NewSchemaProbe(db)
	assert.Equal(t, "data_ia", probe.InseminationDateColumn(context.Background()))
}

func TestInseminationDateColumnMemoizes(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "information_schema.columns", Rows: [][]any{{"data"}}},
	}}
	probe := NewSchemaProbe(db)
	first := probe.InseminationDateColumn(context.Background())

	// Swap the canned answer; the memoized result must hold.
	db.Results = []databasetest.Result{
		{Match: "information_schema.columns", Rows: [][]any{{"data_ia"}}},
	}
	assert.Equal(t, first, probe.InseminationDateColumn(context.Background()))
	assert.Equal(t, "data", first)
}
