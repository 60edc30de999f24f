// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package localdocs serves questions against locally extracted documents
// using an embedded on-disk vector store and a local embedding model.
package localdocs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore exposes a local directory of extraction files through the
// object-store contract, so the same discovery and indexing pipeline
// works for local documents. Keys are slash-separated paths relative to
// the root.
type DirStore struct {
	root string
}

// NewDirStore roots a store at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// List walks the tree and returns relative keys under prefix.
func (s *DirStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Get reads the file for a key.
func (s *DirStore) Get(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
}
