package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

const basicManifest = `
package test

capability: allocator: {payload: "Allocator"}
capability: clock: {
	payload: "Clock"
	default: "wall"
}
capability: secret: {
	payload:    "Secret"
	visibility: "module"
	slot:       5
}

projection: [{from: "Buffer", to: "View"}]

function: main: {
	requires: [{cap: "allocator", mode: "shared"}]
	calls: ["helper"]
}
function: helper: {
	requires: [{cap: "clock", mode: "shared"}]
}

supply: [{cap: "allocator", mode: "shared", value: 42}]

entry: "main"
`

func TestLoadManifest_Basic(t *testing.T) {
	dir := writeManifest(t, map[string]string{"program.cue": basicManifest})

	m, err := LoadManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, m.FileCount)
	assert.Equal(t, "main", m.Entry)

	require.Len(t, m.Kinds, 3)
	byName := make(map[string]ManifestKind)
	for _, k := range m.Kinds {
		byName[k.Name] = k
	}
	assert.Equal(t, "Allocator", byName["allocator"].Payload)
	assert.True(t, byName["clock"].HasDefault)
	assert.Equal(t, "wall", byName["clock"].Default)
	require.NotNil(t, byName["secret"].Slot)
	assert.Equal(t, 5, *byName["secret"].Slot)
	assert.Equal(t, "module", byName["secret"].Visibility)

	require.Len(t, m.Projections, 1)
	assert.Equal(t, "Buffer", m.Projections[0].From)

	require.Len(t, m.Funcs, 2)
	require.Len(t, m.Supplies, 1)
	assert.Equal(t, "allocator", m.Supplies[0].Cap)
}

func TestLoadManifest_MissingDirectory(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	lerr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, lerr.Code)
}

func TestLoadManifest_NoCUEFiles(t *testing.T) {
	dir := writeManifest(t, map[string]string{"readme.txt": "nothing here"})

	_, err := LoadManifest(dir)
	require.Error(t, err)
	lerr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoFiles, lerr.Code)
}

func TestLoadManifest_MissingPayload(t *testing.T) {
	dir := writeManifest(t, map[string]string{"bad.cue": `
package test

capability: broken: {slot: 1}
function: main: {}
entry: "main"
`})

	_, err := LoadManifest(dir)
	require.Error(t, err)
	lerr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidKind, lerr.Code)
}

func TestLoadManifest_EmptyDeclarations(t *testing.T) {
	dir := writeManifest(t, map[string]string{"empty.cue": `entry: "main"`})

	_, err := LoadManifest(dir)
	require.Error(t, err)
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files"}
	assert.Equal(t, "E003: no CUE files", err.Error())
}
