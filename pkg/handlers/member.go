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

package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/sqlstore"
)

// MemberResult is the member-verification outcome. Failed verifications
// carry a uniform "authentication failed" message: the caller must not be
// able to distinguish an unknown member from a data-source fault.
type MemberResult struct {
	Valid    bool   `json:"valid"`
	MemberID string `json:"member_id,omitempty"`
	Name     string `json:"name,omitempty"`
	DOB      string `json:"dob,omitempty"`
	Message  string `json:"message,omitempty"`
}

// MemberHandler verifies member identity against the members table.
type MemberHandler struct {
	store  *sqlstore.Store
	table  string
	logger *slog.Logger
}

// NewMemberHandler wires the relational store.
func NewMemberHandler(store *sqlstore.Store, table string) *MemberHandler {
	return &MemberHandler{
		store:  store,
		table:  table,
		logger: slog.Default().With("handler", "member"),
	}
}

func (h *MemberHandler) Name() string {
	return "MemberHandler"
}

// Verify matches the provided fields against the members table. At least
// one field is required. An unknown member and a data-source failure both
// return valid=false with "authentication failed"; the real cause is
// logged server-side only.
func (h *MemberHandler) Verify(ctx context.Context, memberID, dob, name string) (MemberResult, error) {
	if memberID == "" && dob == "" && name == "" {
		return MemberResult{Valid: false, Message: "missing parameters"}, nil
	}

	row, err := h.store.FindMember(ctx, h.table, memberID, dob, name)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return MemberResult{}, NewError(CategoryCancelled, "member lookup cancelled", err)
		}
		h.logger.Warn("member lookup failed", "member_id", memberID, "error", err)
		return MemberResult{Valid: false, Message: "authentication failed"}, nil
	}

	fullName := row.FirstName
	if row.LastName != "" {
		if fullName != "" {
			fullName += " "
		}
		fullName += row.LastName
	}

	return MemberResult{
		Valid:    true,
		MemberID: row.MemberID,
		Name:     fullName,
		DOB:      row.DOB,
	}, nil
}

// Handle verifies using the extracted entities.
func (h *MemberHandler) Handle(ctx context.Context, req Request) (any, error) {
	if req.Entities.MemberID == "" && req.Entities.DOB == "" && req.Entities.Name == "" {
		return nil, Validation("a member id is required to verify membership")
	}
	return h.Verify(ctx, req.Entities.MemberID, req.Entities.DOB, req.Entities.Name)
}
