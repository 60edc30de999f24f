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

package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	objects map[string][]byte
	listErr error
	getErr  error
}

func (s *fakeObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func pageJSON(blocks ...string) []byte {
	var entries []string
	for i, b := range blocks {
		entries = append(entries, fmt.Sprintf(`{"id":"b%d","block_type":"LINE","text":%q}`, i, b))
	}
	return []byte(`{"blocks":[` + strings.Join(entries, ",") + `]}`)
}

func TestDiscoverPageFiles_DirectPrefix(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"docs/plan/page_0002.json":  pageJSON("b"),
		"docs/plan/page_0001.json":  pageJSON("a"),
		"docs/plan/page_0010.json":  pageJSON("c"),
		"docs/plan/manifest.json":   []byte(`{}`),
		"docs/plan/metadata.json":   []byte(`{}`),
		"docs/plan/page_12.json":    pageJSON("not four digits"),
		"docs/plan/other/notes.txt": []byte("x"),
	}}

	keys, err := DiscoverPageFiles(context.Background(), store, "docs/plan/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"docs/plan/page_0001.json",
		"docs/plan/page_0002.json",
		"docs/plan/page_0010.json",
	}, keys)
}

func TestDiscoverPageFiles_LatestJobWins(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"docs/plan/job-2024-01/page_0001.json": pageJSON("old"),
		"docs/plan/job-2024-01/page_0002.json": pageJSON("old"),
		"docs/plan/job-2025-03/page_0001.json": pageJSON("new"),
		"docs/plan/job-2025-03/consolidated.json": []byte(`{}`),
	}}

	keys, err := DiscoverPageFiles(context.Background(), store, "docs/plan")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/plan/job-2025-03/page_0001.json"}, keys)
}

func TestDiscoverPageFiles_DirectBeatsSubprefix(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"docs/plan/page_0001.json":     pageJSON("direct"),
		"docs/plan/job-1/page_0001.json": pageJSON("nested"),
	}}

	keys, err := DiscoverPageFiles(context.Background(), store, "docs/plan")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/plan/page_0001.json"}, keys)
}

func TestDiscoverPageFiles_NoPages(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"docs/plan/manifest.json": []byte(`{}`),
	}}

	_, err := DiscoverPageFiles(context.Background(), store, "docs/plan")
	var notFound *NoPageFilesError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "docs/plan", notFound.Prefix)
}

func TestDiscoverPageFiles_ListError(t *testing.T) {
	store := &fakeObjectStore{listErr: errors.New("access denied")}

	_, err := DiscoverPageFiles(context.Background(), store, "docs/plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestParsePageFile_LinesAndTables(t *testing.T) {
	data := []byte(`{"blocks":[
		{"id":"l1","block_type":"LINE","text":"Physical Therapy"},
		{"id":"l2","block_type":"LINE","text":""},
		{"id":"l3","block_type":"LINE","text":"Covered at 80%."},
		{"id":"t1","block_type":"TABLE"},
		{"id":"w1","block_type":"WORD","text":"ignored"}
	]}`)

	doc, err := ParsePageFile("docs/page_0003.json", data)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Page)
	assert.True(t, doc.HasTables)
	assert.Equal(t, "Physical Therapy\n\nCovered at 80%.\n[TABLE: t1]", doc.Content)
}

func TestParsePageFile_RejectsNonPageKey(t *testing.T) {
	_, err := ParsePageFile("docs/manifest.json", []byte(`{"blocks":[]}`))
	require.Error(t, err)
}

func TestParsePageFile_BadJSON(t *testing.T) {
	_, err := ParsePageFile("docs/page_0001.json", []byte(`{`))
	require.Error(t, err)
}
