package speech

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	formatter := catalog.Formatter()

	assert.Equal(t, "Snack Wall complete at Depot.", formatter("Snack Wall", "Depot"))
	assert.Equal(t, "Snack Wall complete.", formatter("Snack Wall", ""))

	config := catalog.SessionConfig()
	assert.Equal(t, "Packing complete. All items have been resolved.", config.SessionCompletePhrase)
}

func TestLoadCatalogEmptyPath(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), catalog)
}

func TestLoadCatalogOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machineComplete: \"%s klaar.\"\nsessionComplete: \"Alles ingepakt.\"\n"), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	formatter := catalog.Formatter()
	assert.Equal(t, "Snack Wall klaar.", formatter("Snack Wall", ""))
	// Keys missing from the file keep their defaults.
	assert.Equal(t, "Snack Wall complete at Depot.", formatter("Snack Wall", "Depot"))
	assert.Equal(t, "Alles ingepakt.", catalog.SessionConfig().SessionCompletePhrase)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalogMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machineComplete: [unterminated"), 0o600))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}
