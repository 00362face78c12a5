package editor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohitkumar/funnel/model"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshotStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drafts")
	store, err := NewFileSnapshotStore(dir)
	require.NoError(t, err)

	snapshot, err := store.Load(SNAPSHOT_KEY)
	require.NoError(t, err)
	require.Nil(t, snapshot)

	in := Snapshot{
		Id:        "f1",
		Name:      "draft",
		Steps:     []model.Step{{Id: "s", Kind: model.START_STEP, Label: "start", Properties: model.StartProperties{}}},
		Links:     []model.Link{},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(SNAPSHOT_KEY, in))
	out, err := store.Load(SNAPSHOT_KEY)
	require.NoError(t, err)
	require.Equal(t, in, *out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, store.Delete(SNAPSHOT_KEY))
	require.NoError(t, store.Delete(SNAPSHOT_KEY))
	out, err = store.Load(SNAPSHOT_KEY)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestManagerRestoresFromFileStore(t *testing.T) {
	store, err := NewFileSnapshotStore(t.TempDir())
	require.NoError(t, err)
	first := New(newFakeGateway(), WithSnapshotStore(store))
	_, err = first.AddStep(model.Step{Kind: model.START_STEP})
	require.NoError(t, err)

	second := New(newFakeGateway(), WithSnapshotStore(store), WithNotifier(&RecordingNotifier{}))
	require.Len(t, second.Snapshot().Steps, 1)
	require.True(t, second.IsDirty())
}
