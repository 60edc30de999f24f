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

import "fmt"

// NoPageFilesError indicates that discovery found no page_NNNN.json files
// under the prefix, directly or one job-id level deep.
type NoPageFilesError struct {
	Prefix string
}

func (e *NoPageFilesError) Error() string {
	return fmt.Sprintf("no page files found under prefix %q", e.Prefix)
}

// DimensionMismatchError indicates that the embedding provider produced a
// vector of a different size than the collection is configured for.
// Vectors are never truncated or padded to fit.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %q expects dimension %d but embedder produced %d",
		e.Collection, e.Expected, e.Actual)
}

// UnsupportedOverlapError rejects non-zero chunk overlap. The parameter
// is accepted for API compatibility but overlap is not implemented, and
// silently ignoring it would misrepresent the index.
type UnsupportedOverlapError struct {
	Overlap int
}

func (e *UnsupportedOverlapError) Error() string {
	return fmt.Sprintf("chunk_overlap=%d is not supported; only 0 is accepted", e.Overlap)
}

// BucketMismatchError rejects a prepare request naming a bucket other
// than the one the object store is bound to.
type BucketMismatchError struct {
	Requested string
	Bound     string
}

func (e *BucketMismatchError) Error() string {
	return fmt.Sprintf("bucket %q is not served by this deployment (bound to %q)", e.Requested, e.Bound)
}

// SearchError wraps a vector-store search failure.
type SearchError struct {
	Collection string
	Err        error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("searching collection %q: %v", e.Collection, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// RetryError reports that an operation failed after exhausting its retry
// budget.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
