package lib

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/palantir/stacktrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// layout creates n node directories each holding a marker file naming the node
func layout(t *testing.T, n int) (*status.Registry, string) {
	t.Helper()
	root := t.TempDir()
	registry := status.NewRegistry(root)
	for id := 0; id < n; id++ {
		require.NoError(t, os.Mkdir(registry.NodeDir(id), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(registry.NodeDir(id), "marker"), []byte(status.NodeName(id)), 0o644))
	}
	return registry, filepath.Join(root, "trash")
}

func readMarker(t *testing.T, dir string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	return string(content)
}

func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return "q" + strconv.Itoa(next)
	}
}

func TestInjectAndRestore(t *testing.T) {
	for _, k := range []int{1, 2} {
		t.Run(strconv.Itoa(k)+" node(s)", func(t *testing.T) {
			registry, trash := layout(t, 7)
			injector := NewInjector(registry, trash, rand.New(rand.NewSource(int64(k))))

			faulted, err := injector.Inject(k)
			require.NoError(t, err)
			require.Len(t, faulted, k)

			active, err := registry.ListActive()
			require.NoError(t, err)
			assert.Len(t, active, 7-k)
			for _, id := range faulted {
				assert.NotContains(t, active, id)
				assert.Equal(t, status.NodeName(id), readMarker(t, registry.FaultedDir(id)))
			}

			require.NoError(t, injector.Restore(faulted))

			active, err = registry.ListActive()
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, active)
			for _, id := range faulted {
				assert.Equal(t, status.NodeName(id), readMarker(t, registry.NodeDir(id)))
			}
			aliases, err := registry.ListFaulted()
			require.NoError(t, err)
			assert.Empty(t, aliases)
		})
	}
}

func TestInjectPicksDistinctNodes(t *testing.T) {
	registry, trash := layout(t, 4)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(42)))

	faulted, err := injector.Inject(4)
	require.NoError(t, err)
	sort.Ints(faulted)
	assert.Equal(t, []int{0, 1, 2, 3}, faulted)
}

func TestInjectMoreThanActiveFailsWithoutMutation(t *testing.T) {
	registry, trash := layout(t, 3)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(1)))

	_, err := injector.Inject(4)
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeFaultInjection, cerrors.GetErrorType(err))

	_, err = injector.Inject(0)
	require.Error(t, err)

	active, err := registry.ListActive()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, active)
	_, err = os.Stat(trash)
	assert.True(t, os.IsNotExist(err), "no quarantine may be created on a rejected injection")
}

func TestInjectRollsBackOnRenameFailure(t *testing.T) {
	registry, trash := layout(t, 3)
	// a regular file squats the alias of disk_2, so its rename fails whatever the draw order
	require.NoError(t, os.WriteFile(registry.FaultedDir(2), []byte("squatter"), 0o644))
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(1)))

	ids, err := injector.Inject(3)
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.Equal(t, cerrors.ErrorTypeFaultInjection, cerrors.GetErrorType(stacktrace.RootCause(err)))

	active, err := registry.ListActive()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, active)
	faulted, err := registry.ListFaulted()
	require.NoError(t, err)
	assert.Empty(t, faulted)
	for id := 0; id < 3; id++ {
		assert.Equal(t, status.NodeName(id), readMarker(t, registry.NodeDir(id)))
	}
	content, err := os.ReadFile(registry.FaultedDir(2))
	require.NoError(t, err)
	assert.Equal(t, "squatter", string(content))
}

func TestInjectQuarantinesPendingAlias(t *testing.T) {
	registry, trash := layout(t, 1)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(1)))
	injector.newID = sequentialIDs()

	_, err := injector.Inject(1)
	require.NoError(t, err)

	// the engine re-creates the node, with different content, without a restore
	require.NoError(t, os.Mkdir(registry.NodeDir(0), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(registry.NodeDir(0), "marker"), []byte("regenerated"), 0o644))

	_, err = injector.Inject(1)
	require.NoError(t, err)

	assert.Equal(t, "regenerated", readMarker(t, registry.FaultedDir(0)))
	assert.Equal(t, "disk_0", readMarker(t, filepath.Join(trash, "deleted_disk_0-q1")), "previous fault evidence must survive intact")
}

func TestRestoreQuarantinesRecreatedNode(t *testing.T) {
	registry, trash := layout(t, 3)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(5)))
	injector.newID = sequentialIDs()

	faulted, err := injector.Inject(1)
	require.NoError(t, err)
	id := faulted[0]

	// the engine creates missing node directories on every invocation
	require.NoError(t, os.Mkdir(registry.NodeDir(id), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(registry.NodeDir(id), "marker"), []byte("empty"), 0o644))

	require.NoError(t, injector.Restore(faulted))
	assert.Equal(t, status.NodeName(id), readMarker(t, registry.NodeDir(id)))
	assert.Equal(t, "empty", readMarker(t, filepath.Join(trash, status.NodeName(id)+"-q1")))
}

func TestRestoreRejectsNeverFaultedNodes(t *testing.T) {
	registry, trash := layout(t, 3)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(9)))

	faulted, err := injector.Inject(1)
	require.NoError(t, err)

	other := (faulted[0] + 1) % 3
	err = injector.Restore([]int{faulted[0], other})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeFaultInjection, cerrors.GetErrorType(err))

	// validation happens before any rename
	ok, err := registry.IsFaulted(faulted[0])
	require.NoError(t, err)
	assert.True(t, ok)

	err = injector.Restore([]int{faulted[0], faulted[0]})
	require.Error(t, err)
}

func TestPrepareQuarantine(t *testing.T) {
	registry, trash := layout(t, 1)
	injector := NewInjector(registry, trash, rand.New(rand.NewSource(1)))

	require.NoError(t, injector.PrepareQuarantine())
	err := injector.PrepareQuarantine()
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeSetup, cerrors.GetErrorType(err))
}
