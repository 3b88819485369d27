package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySelectSQL(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "all rows",
			query:    Query{Table: "accounts", Columns: []string{"id", "name"}},
			wantSQL:  "SELECT id, name FROM accounts",
			wantArgs: nil,
		},
		{
			name: "filters order and limit",
			query: Query{
				Table:   "transactions",
				Columns: []string{"id", "amount"},
				Filters: []Filter{Eq("user_id", "u1"), {Column: "amount", Op: OpGte, Value: 10}},
				Order:   []Order{{Column: "date", Desc: true}, {Column: "id"}},
				Limit:   25,
			},
			wantSQL:  "SELECT id, amount FROM transactions WHERE user_id = $1 AND amount >= $2 ORDER BY date DESC, id ASC LIMIT $3",
			wantArgs: []any{"u1", 10, 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.SelectSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestQuerySelectSQL_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"bad table", Query{Table: "accounts; drop table x", Columns: []string{"id"}}},
		{"no columns", Query{Table: "accounts"}},
		{"bad column", Query{Table: "accounts", Columns: []string{"id", "Name"}}},
		{"bad filter column", Query{Table: "accounts", Columns: []string{"id"}, Filters: []Filter{Eq("1=1 or id", 1)}}},
		{"bad operator", Query{Table: "accounts", Columns: []string{"id"}, Filters: []Filter{{Column: "id", Op: "LIKE", Value: "x"}}}},
		{"bad order column", Query{Table: "accounts", Columns: []string{"id"}, Order: []Order{{Column: "id desc"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.query.SelectSQL()
			assert.Error(t, err)
		})
	}
}

func TestQueryDeleteSQL(t *testing.T) {
	sql, args, err := Query{Table: "chat_messages", Filters: []Filter{Eq("user_id", "u1")}}.DeleteSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM chat_messages WHERE user_id = $1", sql)
	assert.Equal(t, []any{"u1"}, args)

	_, _, err = Query{Table: "chat_messages"}.DeleteSQL()
	assert.ErrorContains(t, err, "unfiltered delete")
}
