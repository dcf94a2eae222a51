package cart

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Journal records the open reservations of every live session so they can be
// returned to stock after a restart.
type Journal interface {
	Put(session string, entries []Entry) error
	Delete(session string) error
	Load() (map[string][]Entry, error)
	Clear() error
}

// FileJournal keeps the journal as one JSON document, rewritten on every change.
type FileJournal struct {
	path string

	mu     sync.Mutex
	loaded bool
	open   map[string][]Entry
}

func NewFileJournal(path string) *FileJournal {
	return &FileJournal{path: path}
}

func (j *FileJournal) Put(session string, entries []Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.loadLocked(); err != nil {
		return err
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	j.open[session] = cp
	return j.flushLocked()
}

func (j *FileJournal) Delete(session string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.loadLocked(); err != nil {
		return err
	}
	if _, ok := j.open[session]; !ok {
		return nil
	}
	delete(j.open, session)
	return j.flushLocked()
}

func (j *FileJournal) Load() (map[string][]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[string][]Entry, len(j.open))
	for k, v := range j.open {
		out[k] = append([]Entry(nil), v...)
	}
	return out, nil
}

func (j *FileJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.loaded = true
	j.open = map[string][]Entry{}
	return j.flushLocked()
}

func (j *FileJournal) loadLocked() error {
	if j.loaded {
		return nil
	}

	raw, err := os.ReadFile(j.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		j.open = map[string][]Entry{}
	case err != nil:
		return err
	default:
		open := map[string][]Entry{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &open); err != nil {
				return err
			}
		}
		j.open = open
	}

	j.loaded = true
	return nil
}

func (j *FileJournal) flushLocked() error {
	raw, err := json.MarshalIndent(j.open, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".journal-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), j.path)
}
