package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Equal(t, up, down, "every migration needs an up and a down file")
	assert.GreaterOrEqual(t, up, 1)

	body, err := fs.ReadFile(migrationsFS, "migrations/000001_create_analysis_snapshots.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "analysis_snapshots")
}

func TestRollbackMigration_RejectsNonPositiveSteps(t *testing.T) {
	err := RollbackMigration("postgres://unused", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be greater than 0")
}

//Personal.AI order the ending
