package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
instances:
  simulator:
    parameters:
      - qualifiedName: /YSS/SIMULATOR/Mode
        description: Operating mode
        alias: ["MDB:OPS Name/MODE"]
        type:
          engType: enumeration
          enumValue:
            - {value: 0, label: SAFE}
            - {value: 1, label: NOMINAL}
          defaultAlarm:
            enumerationAlarm:
              - {label: SAFE, level: WARNING}
      - qualifiedName: /YSS/SIMULATOR/Matrix
        type:
          engType: array
          arrayInfo:
            type: {engType: float}
            dimensions: [2, 3]
    commands:
      - qualifiedName: /YSS/SIMULATOR/SET_MODE
        argument:
          - name: mode
            initialValue: SAFE
            type:
              engType: enumeration
              enumValue:
                - {value: 0, label: SAFE}
  other:
    parameters:
      - qualifiedName: /OTHER/X
`

func TestParseSnapshotsYAML(t *testing.T) {
	snaps, err := ParseSnapshotsYAML([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	sim := snaps["simulator"]
	require.NotNil(t, sim)
	p, ok := sim.Parameter("/YSS/SIMULATOR/Mode")
	require.True(t, ok)
	assert.Equal(t, "Mode", p.Name)
	assert.Equal(t, "Operating mode", p.Description)

	entry, err := sim.LookupParameter("/YSS/SIMULATOR/Matrix[1][2]")
	require.NoError(t, err)
	assert.Equal(t, "float", entry.Type.EngType)

	cmd, ok := sim.Command("YSS/SIMULATOR/SET_MODE")
	require.True(t, ok)
	assert.Equal(t, "SAFE", cmd.Arguments[0].InitialValue)
}

func TestParseSnapshotsYAML_Invalid(t *testing.T) {
	_, err := ParseSnapshotsYAML([]byte("instances: [1, 2"))
	assert.Error(t, err)

	_, err = ParseSnapshotsYAML([]byte(`
instances:
  x:
    parameters:
      - qualifiedName: /A
      - qualifiedName: /A
`))
	assert.Error(t, err)
}

func TestMemoryMdbRepo_SeedAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	repo := NewMemoryMdbRepo()
	ctx := context.Background()

	n, err := repo.SeedFromYAMLFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap, err := repo.LoadSnapshot(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", snap.Instance)

	_, err = repo.LoadSnapshot(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	_, err = repo.SeedFromYAMLFile(ctx, filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}
