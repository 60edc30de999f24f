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
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ObjectStore is the object-store slice the indexer needs. Satisfied by
// the S3 adapter.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Block is one extraction record of a page file.
type Block struct {
	ID        string `json:"id"`
	BlockType string `json:"block_type"`
	Text      string `json:"text,omitempty"`
}

// pageFile is the page-level extraction JSON.
type pageFile struct {
	Blocks []Block `json:"blocks"`
}

// Document is one page's extracted text with its base metadata.
type Document struct {
	Source    string
	Page      int
	Content   string
	HasTables bool
}

var pageFilePattern = regexp.MustCompile(`^page_(\d{4})\.json$`)

// skippedFiles are extraction artifacts that never carry page text.
var skippedFiles = map[string]bool{
	"manifest.json":     true,
	"metadata.json":     true,
	"consolidated.json": true,
}

// pageNumber extracts the 1-based page number from a page-file key, or
// -1 when the key is not a page file.
func pageNumber(key string) int {
	base := path.Base(key)
	if skippedFiles[base] {
		return -1
	}
	m := pageFilePattern.FindStringSubmatch(base)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return -1
	}
	return n
}

// DiscoverPageFiles lists page-file keys under prefix. When the prefix
// does not directly contain page files it descends one delimiter level
// into the job-id subprefix holding them; with several candidates the
// lexically greatest (most recent job id) wins. Returns keys sorted by
// page number.
func DiscoverPageFiles(ctx context.Context, store ObjectStore, prefix string) ([]string, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing prefix %q: %w", prefix, err)
	}

	trimmed := strings.TrimSuffix(prefix, "/")

	var direct []string
	bySubdir := make(map[string][]string)
	for _, key := range keys {
		if pageNumber(key) < 0 {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(key, trimmed), "/")
		switch parts := strings.Split(rel, "/"); len(parts) {
		case 1:
			direct = append(direct, key)
		case 2:
			bySubdir[parts[0]] = append(bySubdir[parts[0]], key)
		}
	}

	selected := direct
	if len(selected) == 0 && len(bySubdir) > 0 {
		jobIDs := make([]string, 0, len(bySubdir))
		for id := range bySubdir {
			jobIDs = append(jobIDs, id)
		}
		sort.Strings(jobIDs)
		selected = bySubdir[jobIDs[len(jobIDs)-1]]
	}

	if len(selected) == 0 {
		return nil, &NoPageFilesError{Prefix: prefix}
	}

	sort.Slice(selected, func(a, b int) bool {
		return pageNumber(selected[a]) < pageNumber(selected[b])
	})
	return selected, nil
}

// ParsePageFile turns one page file into a Document. LINE blocks are
// concatenated in document order; TABLE blocks leave a placeholder so
// downstream chunking knows tabular content was present.
func ParsePageFile(key string, data []byte) (Document, error) {
	page := pageNumber(key)
	if page < 0 {
		return Document{}, fmt.Errorf("%q is not a page file", key)
	}

	var pf pageFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return Document{}, fmt.Errorf("parsing page file %q: %w", key, err)
	}

	var lines []string
	hasTables := false
	for _, block := range pf.Blocks {
		switch block.BlockType {
		case "LINE":
			// Empty LINE blocks become blank lines, which the chunker
			// treats as paragraph boundaries.
			lines = append(lines, block.Text)
		case "TABLE":
			hasTables = true
			lines = append(lines, fmt.Sprintf("[TABLE: %s]", block.ID))
		}
	}

	return Document{
		Source:    key,
		Page:      page,
		Content:   strings.Join(lines, "\n"),
		HasTables: hasTables,
	}, nil
}
