package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintracker/internal/model"
)

// inPeriod reports whether t falls in the same day, month or year as now.
func inPeriod(t, now time.Time, p Period) bool {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	switch p {
	case Daily:
		return ty == ny && tm == nm && td == nd
	case Monthly:
		return ty == ny && tm == nm
	case Yearly:
		return ty == ny
	}
	return false
}

// FilterPeriod keeps the transfers created in the current period, newest first.
func FilterPeriod(transfers []model.Transfer, now time.Time, p Period) []model.Transfer {
	out := make([]model.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if inPeriod(t.Created, now, p) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out
}

func (o *Orchestrator) listTransfers(ctx context.Context, id model.Identity, cred model.Credentials, kind model.TransferKind, p Period) Outcome {
	all, err := o.repo.ListTransfers(ctx, cred, kind)
	if err != nil {
		return o.fail(ctx, id, "list "+string(kind), err)
	}

	params := map[string]string{ParamKind: string(kind), ParamPeriod: string(p)}
	items := FilterPeriod(all, o.now(), p)
	if len(items) == 0 {
		return menu(MsgTransferListEmpty, periodKeyboard(kind), params)
	}

	total := decimal.Zero
	for _, t := range items {
		total = total.Add(t.Amount)
	}
	params[ParamTotal] = total.StringFixed(2)
	params[ParamCount] = strconv.Itoa(len(items))

	out := menu(MsgTransferList, periodKeyboard(kind), params)
	out.Transfers = items
	return out
}
