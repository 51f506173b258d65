package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintracker/internal/charts"
	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/model"
)

const (
	csvDateLayout = "2006-01-02 15:04"
	dayLayout     = "2006-01-02"
)

// Report сводит расходы и доходы пользователя.
type Report struct {
	Transfers     []model.Transfer
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Balance       decimal.Decimal
	IncomeCount   int
	ExpenseCount  int
	MaxIncome     *model.Transfer
	MaxExpense    *model.Transfer
	Daily         []charts.DailyTotal
}

// BuildReport merges both lists, oldest first, and computes the totals.
func BuildReport(expenses, incomes []model.Transfer) *Report {
	r := &Report{}
	r.Transfers = make([]model.Transfer, 0, len(expenses)+len(incomes))
	r.Transfers = append(r.Transfers, expenses...)
	r.Transfers = append(r.Transfers, incomes...)
	sort.SliceStable(r.Transfers, func(i, j int) bool {
		return r.Transfers[i].Created.Before(r.Transfers[j].Created)
	})

	byDay := make(map[string]*charts.DailyTotal)
	var days []string
	for i := range r.Transfers {
		t := &r.Transfers[i]
		day := t.Created.Format(dayLayout)
		dt, ok := byDay[day]
		if !ok {
			y, m, d := t.Created.Date()
			dt = &charts.DailyTotal{Date: time.Date(y, m, d, 0, 0, 0, 0, t.Created.Location())}
			byDay[day] = dt
			days = append(days, day)
		}
		amount := t.Amount.InexactFloat64()
		switch t.Kind {
		case model.Income:
			r.TotalIncome = r.TotalIncome.Add(t.Amount)
			r.IncomeCount++
			dt.Income += amount
			if r.MaxIncome == nil || t.Amount.GreaterThan(r.MaxIncome.Amount) {
				r.MaxIncome = t
			}
		default:
			r.TotalExpenses = r.TotalExpenses.Add(t.Amount)
			r.ExpenseCount++
			dt.Expense += amount
			if r.MaxExpense == nil || t.Amount.GreaterThan(r.MaxExpense.Amount) {
				r.MaxExpense = t
			}
		}
	}
	r.Balance = r.TotalIncome.Sub(r.TotalExpenses)

	sort.Strings(days)
	r.Daily = make([]charts.DailyTotal, 0, len(days))
	for _, day := range days {
		r.Daily = append(r.Daily, *byDay[day])
	}
	return r
}

// CSV renders the report rows: Date, Type, Amount, Description, Category.
func (r *Report) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Type", "Amount", "Description", "Category"}); err != nil {
		return nil, err
	}
	for _, t := range r.Transfers {
		category := ""
		if t.Category != nil {
			category = strconv.FormatInt(*t.Category, 10)
		}
		row := []string{
			t.Created.Format(csvDateLayout),
			t.Kind.Title(),
			t.Amount.StringFixed(2),
			t.Description,
			category,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write report csv: %w", err)
	}
	return buf.Bytes(), nil
}

// report builds the CSV and chart attachments of the get_report button.
func (o *Orchestrator) report(ctx context.Context, id model.Identity, cred model.Credentials) Outcome {
	expenses, err := o.repo.ListTransfers(ctx, cred, model.Expense)
	if err != nil {
		return o.fail(ctx, id, "report", err)
	}
	incomes, err := o.repo.ListTransfers(ctx, cred, model.Income)
	if err != nil {
		return o.fail(ctx, id, "report", err)
	}

	r := BuildReport(expenses, incomes)
	if len(r.Transfers) == 0 {
		return menu(MsgReportEmpty, KeyboardReport, nil)
	}

	data, err := r.CSV()
	if err != nil {
		return o.fail(ctx, id, "report", err)
	}
	stamp := o.now().Format("20060102")
	out := menu(MsgReportReady, KeyboardStart, map[string]string{
		ParamCount:    strconv.Itoa(len(r.Transfers)),
		ParamIncome:   r.TotalIncome.StringFixed(2),
		ParamExpenses: r.TotalExpenses.StringFixed(2),
		ParamBalance:  r.Balance.StringFixed(2),
	})
	out.Attachments = append(out.Attachments, Attachment{
		Name:     "report_" + stamp + ".csv",
		MIMEType: "text/csv",
		Data:     data,
	})

	if o.charts != nil {
		img, err := o.charts.GenerateBalanceDashboard(r.Daily)
		switch {
		case err != nil:
			logger.Warn(ctx, component, "report.chart", logger.Err(err))
		case img != nil:
			out.Attachments = append(out.Attachments, Attachment{
				Name:     "balance_" + stamp + ".png",
				MIMEType: "image/png",
				Data:     img,
			})
		}
		totals, err := o.charts.GenerateTotalsChart(r.TotalExpenses.InexactFloat64(), r.TotalIncome.InexactFloat64())
		switch {
		case err != nil:
			logger.Warn(ctx, component, "report.chart", logger.Err(err))
		case totals != nil:
			out.Attachments = append(out.Attachments, Attachment{
				Name:     "totals_" + stamp + ".png",
				MIMEType: "image/png",
				Data:     totals,
			})
		}
	}

	logger.Info(ctx, component, "report.built",
		slog.Int("transfers", len(r.Transfers)),
		slog.Int("attachments", len(out.Attachments)),
	)
	return out
}
