package persistence

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/migrations"
)

func TestPendingMigrations(t *testing.T) {
	names, err := PendingMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "001_init.sql", names[0])
	assert.True(t, sort.StringsAreSorted(names), "migrations must apply in lexical order")

	for _, name := range names {
		content, err := fs.ReadFile(migrations.Files, name)
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(string(content)), "migration %s is empty", name)
	}
}
