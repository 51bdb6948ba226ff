package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"bilancio/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../statement/testdata/revolut_en.csv"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "bilancio.db"))
	t.Setenv("SEED_DIR", dir)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, `"raw_rows": 5`)
	assert.Contains(t, out, "Esselunga Milano")
}

func TestParseCommand_MissingFile(t *testing.T) {
	_, err := run(t, "parse", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestImportCommand_IsIdempotent(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3, skipped 0 of 3")

	out, err = run(t, "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0, skipped 3 of 3")
}

func TestImportCommand_DryRunDoesNotWrite(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "import", "--dry-run", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "3 candidates, 2 rows skipped")

	out, err = run(t, "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3")
}

func TestMigrateCommands(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema version")
	assert.Contains(t, out, "(clean)")

	_, err = run(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
}

func TestMigrateCommand_MemoryBackend(t *testing.T) {
	useSQLite(t)
	t.Setenv("DATA_BACKEND", "memory")

	_, err := run(t, "migrate", "version")
	require.Error(t, err)
}

func TestSeedAndRecategorize(t *testing.T) {
	useSQLite(t)

	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
categories:
  - name: Spesa
    icon: "🛒"
rules:
  - pattern: esselunga
    category: Spesa
  - pattern: top-up
    category: Ricariche
`), 0o600))

	_, err := run(t, "import", "--no-rules", fixture)
	require.NoError(t, err)

	out, err := run(t, "seed", seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "created 2 categories, upserted 2 rules")

	out, err = run(t, "recategorize")
	require.NoError(t, err)
	assert.Contains(t, out, "updated 2 transactions")
}

func TestApplySeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed := SeedFile{
		Categories: []SeedCategory{{Name: "Casa"}, {Name: "casa"}},
		Rules:      []SeedRule{{Pattern: "IKEA", Category: "Casa"}},
	}

	first, err := ApplySeed(ctx, st, seed)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{CategoriesCreated: 1, RulesUpserted: 1}, first)

	second, err := ApplySeed(ctx, st, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CategoriesCreated)

	rules, err := st.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	cats, err := st.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, cats[0].ID, rules[0].CategoryID)
}

func TestApplySeed_RuleWithoutCategory(t *testing.T) {
	_, err := ApplySeed(context.Background(), memory.New(), SeedFile{
		Rules: []SeedRule{{Pattern: "bar"}},
	})
	require.Error(t, err)
}

func TestReadSeedFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: [\n"), 0o600))

	_, err := ReadSeedFile(path)
	require.Error(t, err)
}
