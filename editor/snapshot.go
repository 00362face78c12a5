package editor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mohitkumar/funnel/model"
)

// SNAPSHOT_KEY is the single slot the working draft is mirrored to.
const SNAPSHOT_KEY = "flow_autosave"

type Snapshot struct {
	Id        string       `json:"id,omitempty"`
	Name      string       `json:"name"`
	Steps     []model.Step `json:"nodes"`
	Links     []model.Link `json:"edges"`
	Timestamp time.Time    `json:"timestamp"`
}

// SnapshotStore is local durable storage for drafts. Load returns nil when
// nothing is stored under key.
type SnapshotStore interface {
	Save(key string, snapshot Snapshot) error
	Load(key string) (*Snapshot, error)
	Delete(key string) error
}

var _ SnapshotStore = new(MemorySnapshotStore)

type MemorySnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{data: make(map[string][]byte)}
}

func (s *MemorySnapshotStore) Save(key string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func (s *MemorySnapshotStore) Load(key string) (*Snapshot, error) {
	s.mu.Lock()
	data, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *MemorySnapshotStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var _ SnapshotStore = new(FileSnapshotStore)

// FileSnapshotStore keeps one JSON file per key under dir. Writes go to a
// temporary file first so a crash never leaves a torn snapshot.
type FileSnapshotStore struct {
	dir string
}

func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSnapshotStore{dir: dir}, nil
}

func (s *FileSnapshotStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileSnapshotStore) Save(key string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileSnapshotStore) Load(key string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *FileSnapshotStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
