package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionIncome.Valid())
	assert.True(t, TransactionExpense.Valid())
	assert.True(t, TransactionTransfer.Valid())
	assert.False(t, TransactionType("refund").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestGoalStatusAndRoleValid(t *testing.T) {
	assert.True(t, GoalCancelled.Valid())
	assert.False(t, GoalStatus("paused").Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, ChatRole("system").Valid())
}

func TestFinancialGoalProgress(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		current string
		want    float64
	}{
		{"half way", "1000", "500", 0.5},
		{"over target is capped", "100", "250", 1},
		{"zero target", "0", "50", 0},
		{"negative current", "100", "-10", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := FinancialGoal{
				TargetAmount:  decimal.RequireFromString(tt.target),
				CurrentAmount: decimal.RequireFromString(tt.current),
			}
			assert.InDelta(t, tt.want, g.Progress(), 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-10-01", want: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{in: " 2026-10-01 ", want: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2026-10-01T23:30:00-02:00", want: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)},
		{in: "01/10/2026", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}
}
