package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ctmflow/internal/registry"
)

// Catalog returns a small registry with predictable defaults:
//
//	Command       Job:Command             Command="echo ok"
//	Data_Oracle   Job:Database:SQLScript  ConnectionProfile="ORA", SQLScript="export.sql"
//	SLA           Job:SLAManagement       ServiceName required, no default
func Catalog(t testing.TB) *registry.Catalog {
	t.Helper()

	c := registry.NewCatalog()
	defs := []registry.Definition{
		{
			Type:       "Command",
			EngineType: "Job:Command",
			Required:   []string{"Command"},
			Defaults:   map[string]any{"Command": "echo ok"},
		},
		{
			Type:       "Data_Oracle",
			EngineType: "Job:Database:SQLScript",
			Required:   []string{"ConnectionProfile", "SQLScript"},
			Optional:   []string{"OutputSQLOutput"},
			Defaults: map[string]any{
				"ConnectionProfile": "ORA",
				"SQLScript":         "export.sql",
			},
		},
		{
			Type:       "SLA",
			EngineType: "Job:SLAManagement",
			Required:   []string{"ServiceName"},
		},
	}
	for _, def := range defs {
		require.NoError(t, c.Register(def))
	}
	return c
}
