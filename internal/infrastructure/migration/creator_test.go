package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add clientes table", "add_clientes_table"},
		{"Add-Clientes-Table", "add_clientes_table"},
		{"ADD_CLIENTES_TABLE", "add_clientes_table"},
		{"add__clientes__table", "add_clientes_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "add prospectos source", "Track where each prospecto came from")
	require.NoError(t, err)

	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, "000001_add_prospectos_source.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "000001_add_prospectos_source.down.sql", filepath.Base(mf.DownPath))

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "add prospectos source")
	assert.Contains(t, string(upContent), "Track where each prospecto came from")
	assert.Contains(t, string(upContent), "Write your UP migration SQL here")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
	assert.Contains(t, string(downContent), "Write your DOWN migration SQL here")
}

func TestCreateMigration_Sequential(t *testing.T) {
	tmpDir := t.TempDir()
	for _, f := range []string{"000001_init_schema.up.sql", "000007_add_index.up.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("--"), 0o644))
	}

	mf, err := CreateMigration(tmpDir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nestedPath, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	tmpDir := t.TempDir()
	files := []string{
		"000003_add_prospectos.up.sql",
		"000003_add_prospectos.down.sql",
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"000002_add_usuarios.up.sql",
		"000002_add_usuarios.down.sql",
		"README.md",
		".gitkeep",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "subdir.up.sql"), 0o755))

	list, err := ListMigrations(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_init_schema",
		"000002_add_usuarios",
		"000003_add_prospectos",
	}, list)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	list, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrations.FS, down)
		assert.NoError(t, err, "missing rollback for %s", up)
	}
}

func TestEmbeddedMigrations_InitSchema(t *testing.T) {
	content, err := fs.ReadFile(migrations.FS, "000001_init_schema.up.sql")
	require.NoError(t, err)

	for _, table := range []string{
		"personas_terceros", "presupuestos", "presupuesto_items", "facturas",
		"factura_items", "proyectos", "certificados", "prospectos", "usuarios",
	} {
		assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, string(content), "INDEX idx_personas_terceros_cuit (cuit)")
	assert.NotContains(t, string(content), "UNIQUE INDEX idx_personas_terceros_cuit")
}
