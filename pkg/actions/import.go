package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/status"
	"github.com/umputun/gensvc/pkg/store"
)

// ItemStore is the part of the store used by ImportItems.
type ItemStore interface {
	Find(ctx context.Context, dst store.Record, keys ...any) error
	Add(e store.Entity)
	Update(e store.Entity)
}

// ImportItems stages the items of a job as inserts or updates. the service saves them on success.
// the first 30% of progress checks the job, the rest stages items.
type ImportItems struct {
	action.Base
	store ItemStore
	now   func() time.Time
}

// NewImportItems makes an import action over st.
func NewImportItems(st ItemStore) *ImportItems {
	return &ImportItems{store: st, now: time.Now}
}

// Name returns the action name.
func (a *ImportItems) Name() string { return "import items" }

// Flags returns the action capabilities.
func (a *ImportItems) Flags() action.Flags { return action.FlagNormal }

// SubmitChangesOnSuccess asks the service to save staged items.
func (a *ImportItems) SubmitChangesOnSuccess() bool { return true }

// Do checks job and stages its items. the result value is the number of staged items.
func (a *ImportItems) Do(ctx context.Context, comms *action.Comms, job Job) (status.Result[int], error) {
	check := &checkJob{}
	if err := check.SetBounds(a.Child(0, 30)); err != nil {
		return status.NewResult[int](), err
	}
	check.SetLogger(a.Logger())
	checked, err := check.Do(ctx, comms, job)
	if err != nil {
		return status.NewResult[int](), err
	}
	if !checked.IsValid() {
		return status.Convert[int](checked), nil
	}
	rows, _ := checked.Value()

	res := status.Convert[int](checked)
	added, updated := 0, 0
	for i, row := range rows {
		pct := 30 + i*70/len(rows)
		if err := a.ReportProgressAndCheckCancel(comms, pct, nil); err != nil {
			return status.NewResult[int](), err
		}

		it := &store.Item{SKU: row.SKU, Name: row.Name, Quantity: *row.Quantity, UpdatedAt: a.now()}
		var existing store.Item
		switch err := a.store.Find(ctx, &existing, row.SKU); {
		case errors.Is(err, store.ErrNotFound):
			a.store.Add(it)
			added++
		case err != nil:
			return status.NewResult[int](), fmt.Errorf("look up item %s: %w", row.SKU, err)
		default:
			if it.Name == "" {
				it.Name = existing.Name
			}
			a.store.Update(it)
			updated++
		}
	}

	done := progress.Info("staged %d item(s) of job %q", len(rows), job.Name)
	a.ReportProgress(comms, 100, &done)
	return res.WithSuccessResult(added+updated, "imported %d item(s): %d added, %d updated", added+updated, added, updated), nil
}

// checkJob validates job rows and drops duplicates. its value is the rows to import.
// it only walks in-memory rows and is not cancellable, the import checks for cancellation while staging.
type checkJob struct {
	action.Base
}

func (c *checkJob) Flags() action.Flags          { return action.FlagCancelNotSupported }
func (c *checkJob) SubmitChangesOnSuccess() bool { return false }

func (c *checkJob) Do(_ context.Context, comms *action.Comms, job Job) (status.Result[[]JobItem], error) {
	res := status.NewResult[[]JobItem]()
	if len(job.Items) == 0 {
		return res.WithNamedError("items", "job %q has no items", job.Name), nil
	}

	seen := make(map[string]int, len(job.Items))
	rows := make([]JobItem, 0, len(job.Items))
	for i, it := range job.Items {
		pct := i * 100 / len(job.Items)
		c.ReportProgress(comms, pct, nil)

		n := i + 1
		it.SKU = strings.TrimSpace(it.SKU)
		switch {
		case it.SKU == "":
			res = res.WithNamedError("sku", "item %d: sku is required", n)
			continue
		case it.Quantity == nil:
			res = res.WithNamedError("quantity", "item %d (%s): quantity is required", n, it.SKU)
			continue
		case *it.Quantity < 0:
			res = res.WithNamedError("quantity", "item %d (%s): quantity %d is negative", n, it.SKU, *it.Quantity)
			continue
		}

		if first, dup := seen[it.SKU]; dup {
			res = c.warn(comms, res, pct, "item %d: duplicate sku %s of item %d skipped", n, it.SKU, first)
			continue
		}
		seen[it.SKU] = n
		if *it.Quantity == 0 {
			res = c.warn(comms, res, pct, "item %d (%s): quantity is zero", n, it.SKU)
		}
		rows = append(rows, it)
	}

	c.ReportProgress(comms, 100, nil)
	if res.HasErrors() {
		return res, nil
	}
	return res.WithSuccessResult(rows, "%d row(s) checked", len(rows)), nil
}

func (c *checkJob) warn(comms *action.Comms, res status.Result[[]JobItem], pct int, format string, args ...any) status.Result[[]JobItem] {
	msg := progress.Warning(format, args...)
	c.ReportProgress(comms, pct, &msg)
	return res.WithWarning("%s", msg.Text)
}
