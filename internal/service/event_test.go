package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ivanoskov/fintracker/internal/model"
)

func TestParseTransferButton(t *testing.T) {
	tests := []struct {
		data   string
		action buttonAction
		kind   model.TransferKind
		period Period
	}{
		{"add_expense", actionAdd, model.Expense, ""},
		{"add_income", actionAdd, model.Income, ""},
		{"update_expense", actionUpdate, model.Expense, ""},
		{"edit_income", actionUpdate, model.Income, ""},
		{"delete_income", actionDelete, model.Income, ""},
		{"view_expenses", actionViewMenu, model.Expense, ""},
		{"view_incomes", actionViewMenu, model.Income, ""},
		{"view_daily_expenses", actionViewPeriod, model.Expense, Daily},
		{"view_yearly_incomes", actionViewPeriod, model.Income, Yearly},
		{"view_weekly_incomes", actionUnknown, "", ""},
		{"add_loan", actionUnknown, "", ""},
		{"add", actionUnknown, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, kind, period := parseTransferButton(tt.data)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.period, period)
		})
	}
}

func TestButtonBuildersRoundTrip(t *testing.T) {
	for _, kind := range []model.TransferKind{model.Expense, model.Income} {
		for _, p := range Periods() {
			action, gotKind, gotPeriod := parseTransferButton(ViewPeriodButton(p, kind))
			assert.Equal(t, actionViewPeriod, action)
			assert.Equal(t, kind, gotKind)
			assert.Equal(t, p, gotPeriod)
		}
	}
}

func TestCommandNormalizesName(t *testing.T) {
	assert.Equal(t, "start", Command("/Start").Name)
	assert.Equal(t, EventCommand, Command("help").Type)
	assert.Equal(t, "start", Command("/start@finbot").Name)

	ev := Command("/hunter2 with spaces")
	assert.Equal(t, "hunter2", ev.Name)
	assert.Equal(t, "/hunter2 with spaces", ev.Text)
}

func TestInPeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sameDay := time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	lastMonth := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, inPeriod(sameDay, now, Daily))
	assert.False(t, inPeriod(lastMonth, now, Monthly))
	assert.True(t, inPeriod(lastMonth, now, Yearly))
	assert.False(t, inPeriod(lastYear, now, Yearly))
	assert.False(t, inPeriod(sameDay, now, Period("weekly")))
}
