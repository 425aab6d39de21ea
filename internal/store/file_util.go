package store

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// loadJSON reads path into v and reports whether usable data was found.
// Missing, empty, and corrupt files all report false: every file store here
// hydrates from an empty default instead of failing, so callers never need
// to distinguish the three.
func loadJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// storeJSON replaces path with the JSON encoding of v. The write goes to a
// sibling temp file first and is renamed into place, so a crash mid-write
// leaves the previous snapshot intact rather than a torn one.
func storeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
