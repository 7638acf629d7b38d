package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

type fileContents struct {
	Version int                          `json:"version"`
	Values  map[string]map[string]string `json:"values"`
}

// File keeps values in a JSON document that is rewritten atomically on every
// Set.
type File struct {
	path string

	mu       sync.Mutex
	contents fileContents
}

// OpenFile loads path, creating it when missing.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}

	if err := f.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		f.contents = fileContents{
			Version: 1,
			Values:  make(map[string]map[string]string),
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("path", path))
		}
		if err := f.save(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// load reads the file into memory.
func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	var c fileContents
	if err := json.Unmarshal(data, &c); err != nil {
		return goerr.Wrap(err, "failed to decode store file", goerr.V("path", f.path))
	}
	if c.Values == nil {
		c.Values = make(map[string]map[string]string)
	}
	f.contents = c
	return nil
}

// save atomically writes the file to disk.
func (f *File) save() error {
	tmp := f.path + ".tmp"
	data, err := json.MarshalIndent(f.contents, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode store file")
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write store file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return goerr.Wrap(err, "failed to replace store file", goerr.V("path", f.path))
	}
	return nil
}

func (f *File) Get(_ context.Context, namespace, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.contents.Values[namespace][key]
	return v, ok, nil
}

// Set updates the value and persists the whole file. On a failed write the
// previous value is restored.
func (f *File) Set(_ context.Context, namespace, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns, ok := f.contents.Values[namespace]
	if !ok {
		ns = make(map[string]string)
		f.contents.Values[namespace] = ns
	}
	prev, existed := ns[key]
	ns[key] = value

	if err := f.save(); err != nil {
		if existed {
			ns[key] = prev
		} else {
			delete(ns, key)
		}
		return err
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
