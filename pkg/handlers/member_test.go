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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/sqlstore"
)

func newMockStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlstore.NewStore(sqlx.NewDb(db, "sqlmock")), mock
}

func memberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"member_id", "first_name", "last_name", "dob"})
}

func TestMemberHandler_ValidMember(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT member_id, first_name, last_name, dob FROM members WHERE member_id = \$1 LIMIT 1`).
		WithArgs("M1001").
		WillReturnRows(memberRows().AddRow("M1001", "Brandi", "Kim", "2005-05-23"))

	h := NewMemberHandler(store, "members")
	result, err := h.Handle(context.Background(), Request{
		Query:    "Is member M1001 active?",
		Entities: intent.Entities{MemberID: "M1001"},
	})
	require.NoError(t, err)

	member, ok := result.(MemberResult)
	require.True(t, ok)
	assert.True(t, member.Valid)
	assert.Equal(t, "M1001", member.MemberID)
	assert.Equal(t, "Brandi Kim", member.Name)
	assert.Equal(t, "2005-05-23", member.DOB)
}

func TestMemberHandler_MissingParameters(t *testing.T) {
	store, _ := newMockStore(t)
	h := NewMemberHandler(store, "members")

	result, err := h.Verify(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "missing parameters", result.Message)

	_, err = h.Handle(context.Background(), Request{Query: "am I active?"})
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CategoryValidation, herr.Category)
}

func TestMemberHandler_UnknownMember(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT member_id, first_name, last_name, dob FROM members`).
		WithArgs("M9999").
		WillReturnRows(memberRows())

	h := NewMemberHandler(store, "members")
	result, err := h.Verify(context.Background(), "M9999", "", "")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "authentication failed", result.Message)
}

func TestMemberHandler_DataSourceErrorIsMasked(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT member_id, first_name, last_name, dob FROM members`).
		WithArgs("M1001").
		WillReturnError(errors.New("connection refused"))

	h := NewMemberHandler(store, "members")
	result, err := h.Verify(context.Background(), "M1001", "", "")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, "authentication failed", result.Message,
		"data-source failures must be indistinguishable from unknown members")
	assert.NotContains(t, result.Message, "connection refused")
}

func TestMemberHandler_VerifyByName(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`LOWER\(first_name \|\| ' ' \|\| last_name\) LIKE \$1 LIMIT 1`).
		WithArgs("%brandi%").
		WillReturnRows(memberRows().AddRow("M1001", "Brandi", "Kim", "2005-05-23"))

	h := NewMemberHandler(store, "members")
	result, err := h.Verify(context.Background(), "", "", "Brandi")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "M1001", result.MemberID)
}

func TestMemberHandler_DOBMismatch(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`WHERE member_id = \$1 AND dob = \$2 LIMIT 1`).
		WithArgs("M1001", "1999-01-01").
		WillReturnRows(memberRows())

	h := NewMemberHandler(store, "members")
	result, err := h.Verify(context.Background(), "M1001", "1999-01-01", "")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "authentication failed", result.Message)
}
