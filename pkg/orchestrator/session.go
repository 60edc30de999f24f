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

package orchestrator

import (
	"sync"
	"time"
)

// HistoryItem is one past request in a session.
type HistoryItem struct {
	Query      string    `json:"query"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Agent      string    `json:"agent"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionStore holds bounded per-session history. Sessions are created
// lazily on first append; the FIFO truncates to maxHistory. The lock is
// never held across an external call.
type SessionStore struct {
	mu         sync.Mutex
	sessions   map[string][]HistoryItem
	maxHistory int
}

// NewSessionStore builds a store truncating each session to maxHistory.
func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &SessionStore{
		sessions:   make(map[string][]HistoryItem),
		maxHistory: maxHistory,
	}
}

// Append records an item, stamping it with the current wall clock.
func (s *SessionStore) Append(sessionID string, item HistoryItem) {
	item.Timestamp = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[sessionID], item)
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[sessionID] = history
}

// History returns a copy of the session's items, oldest first. Unknown
// sessions yield an empty slice.
func (s *SessionStore) History(sessionID string) []HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.sessions[sessionID]
	out := make([]HistoryItem, len(history))
	copy(out, history)
	return out
}

// ClearHistory drops a session.
func (s *SessionStore) ClearHistory(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
