package retrieval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// On-disk layout: <zone>.index.json maps document id to its vector,
// <zone>_meta.json maps document id to {owner_key, text, metadata}. Both
// files are written to a temp path and renamed so a crash mid-write never
// leaves a corrupt file visible. On load the live id set is the
// intersection of the two files, which keeps a torn pair consistent.

type metaEntry struct {
	OwnerKey string         `json:"owner_key"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, s.zone+".index.json")
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dir, s.zone+"_meta.json")
}

// saveLocked persists the index. Callers must hold the write lock so a save
// never interleaves with a concurrent mutation.
func (s *Store) saveLocked() error {
	index := make(map[string][]float32, len(s.docs))
	meta := make(map[string]metaEntry, len(s.docs))
	for id, doc := range s.docs {
		key := strconv.FormatInt(id, 10)
		if doc.vector != nil {
			index[key] = doc.vector
		}
		meta[key] = metaEntry{
			OwnerKey: doc.OwnerKey,
			Text:     doc.Text,
			Metadata: doc.Metadata,
		}
	}

	if err := writeAtomic(s.indexPath(), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := writeAtomic(s.metaPath(), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) load() error {
	meta, err := readJSON[map[string]metaEntry](s.metaPath())
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}

	index, err := readJSON[map[string][]float32](s.indexPath())
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(meta))
	for key := range meta {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		key := strconv.FormatInt(id, 10)
		entry := meta[key]
		if entry.OwnerKey == "" || entry.Text == "" {
			continue
		}

		doc := &document{
			ID:       id,
			OwnerKey: entry.OwnerKey,
			Text:     entry.Text,
			Metadata: entry.Metadata,
		}
		if index != nil {
			if vec, ok := index[key]; ok && len(vec) == s.ndim {
				doc.vector = vec
			}
		}

		s.docs[id] = doc
		s.order = append(s.order, id)
		s.seen[dedupeKey(entry.OwnerKey, entry.Text)] = id
		if id > s.nextID {
			s.nextID = id
		}
	}

	return nil
}

func readJSON[T any](path string) (T, error) {
	var zero T

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, nil
		}
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return v, nil
}
