// Package file persists the board to two JSON documents on disk, tokens.json
// and votes.json, rewriting the whole collection on every mutation.
//
// A missing or unparseable document is treated as an empty collection. Elements
// that do not decode are kept verbatim and written back on every rewrite, so a
// mutation never drops records it could not read. An I/O error on read is
// reported as storage.ErrUnavailable. Writes go through a temp file and rename
// so a crash leaves either the old or the new document in place.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"token-board/internal/storage"
)

// Default document names inside the data directory.
const (
	TokensFile = "tokens.json"
	VotesFile  = "votes.json"
)

// readList loads a JSON array as raw elements.
// ok is false when the file exists but does not hold a JSON array.
func readList(path string) (items []json.RawMessage, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, err
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, nil
	}
	return items, true, nil
}

// record is one element of a document. value is nil when the element did not
// decode; raw is then written back unchanged.
type record[T any] struct {
	raw   json.RawMessage
	value *T
}

func (r record[T]) MarshalJSON() ([]byte, error) {
	if r.value != nil {
		return json.Marshal(r.value)
	}
	return r.raw, nil
}

func readError(path string, err error) error {
	return fmt.Errorf("%w: read %s: %v", storage.ErrUnavailable, path, err)
}

// writeJSON atomically replaces path with v encoded as indented JSON.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", storage.ErrUnavailable, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", storage.ErrUnavailable, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", storage.ErrUnavailable, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", storage.ErrUnavailable, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", storage.ErrUnavailable, path, err)
	}
	return nil
}

// Open prepares dir and returns the token and vote event stores backed by it.
// The vote ledger is loaded once so a malformed votes.json is repaired at startup.
func Open(dir string, logger *log.Logger) (*TokenStore, *VoteEventStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[store] ", log.LstdFlags)
	}

	tokens := NewTokenStore(filepath.Join(dir, TokensFile), logger)
	events := NewVoteEventStore(filepath.Join(dir, VotesFile), logger)

	events.mu.Lock()
	_, err := events.load()
	events.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	return tokens, events, nil
}
