package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newslinker/internal/linker"
)

func embeddedSchema(t *testing.T) string {
	t.Helper()
	files, err := fs.Glob(migrationsFS, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	var b strings.Builder
	for _, f := range files {
		data, err := fs.ReadFile(migrationsFS, f)
		require.NoError(t, err)
		b.Write(data)
	}
	return b.String()
}

func TestCatalogTablesOwnTheirIDSequence(t *testing.T) {
	t.Parallel()

	schema := embeddedSchema(t)
	require.NotContains(t, schema, "LIKE people")
	for _, c := range linker.Categories() {
		pattern := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s \(\s*id\s+BIGSERIAL PRIMARY KEY`, regexp.QuoteMeta(c.Table()))
		require.Regexp(t, pattern, schema, "table %s", c.Table())
	}
}

func TestMigrateDBRejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	err := MigrateDB(context.Background(), nil, "sideways")
	require.ErrorContains(t, err, "unknown migration direction")
}
