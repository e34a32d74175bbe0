package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
)

// ErrUnknownMedicine is returned when the board has no medicine by the
// requested id or name.
var ErrUnknownMedicine = errors.New("unknown medicine")

// Board is the client-side view of a user's medicines for today. It applies
// intake changes optimistically and reconciles with the server when a call
// fails. A Board is not safe for concurrent use.
type Board struct {
	api  *Client
	loc  *time.Location
	now  func() time.Time
	meds []types.Medicine
}

func NewBoard(api *Client, loc *time.Location) *Board {
	if loc == nil {
		loc = time.UTC
	}
	return &Board{api: api, loc: loc, now: time.Now}
}

// Refresh replaces the local copy with the server's.
func (b *Board) Refresh(ctx context.Context) error {
	meds, err := b.api.Medicines(ctx)
	if err != nil {
		return err
	}
	b.meds = b.meds[:0]
	for _, m := range meds {
		b.meds = append(b.meds, m.Medicine)
	}
	return nil
}

func (b *Board) Medicines() []types.Medicine {
	return append([]types.Medicine(nil), b.meds...)
}

// Schedule groups today's doses by slot from the local copy.
func (b *Board) Schedule() types.Schedule {
	return tracker.BuildSchedule(b.meds, b.now(), b.loc)
}

// Resolve finds a medicine by id, or by case-insensitive name.
func (b *Board) Resolve(ref string) (types.Medicine, error) {
	for _, m := range b.meds {
		if m.ID == ref {
			return m, nil
		}
	}
	var found []types.Medicine
	for _, m := range b.meds {
		if strings.EqualFold(m.Name, ref) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return types.Medicine{}, fmt.Errorf("%w: %s", ErrUnknownMedicine, ref)
	case 1:
		return found[0], nil
	}
	return types.Medicine{}, fmt.Errorf("%q matches %d medicines, use the id", ref, len(found))
}

// Record applies a take or undo locally, then sends it. The local rules are
// the server's, so a dose the stock cannot cover is refused before any
// request is made. When the request fails the local change is rolled back
// and the board refetched.
func (b *Board) Record(ctx context.Context, id string, slot types.TimeOfDay, taken bool, count int) (types.Medicine, error) {
	i := b.index(id)
	if i < 0 {
		return types.Medicine{}, fmt.Errorf("%w: %s", ErrUnknownMedicine, id)
	}

	prev := b.meds[i]
	next, _, err := tracker.RecordIntake(prev, tracker.IntakeRequest{TimeOfDay: slot, Taken: taken, Count: count}, b.now(), b.loc)
	if err != nil {
		return prev, err
	}
	b.meds[i] = next

	updated, err := b.api.Take(ctx, id, slot, taken, count)
	if err != nil {
		b.meds[i] = prev
		if rerr := b.Refresh(ctx); rerr != nil {
			return prev, errors.Join(err, fmt.Errorf("refresh after failed update: %w", rerr))
		}
		return prev, err
	}
	if j := b.index(id); j >= 0 {
		b.meds[j] = updated.Medicine
	}
	return updated.Medicine, nil
}

func (b *Board) index(id string) int {
	for i := range b.meds {
		if b.meds[i].ID == id {
			return i
		}
	}
	return -1
}

// RenderSchedule writes s as a table grouped by slot.
func RenderSchedule(w io.Writer, s types.Schedule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Schedule for %s\n", s.Date)
	for _, slot := range types.TimesOfDay {
		items := s.Slot(slot)
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper(string(slot)))
		if len(items) == 0 {
			fmt.Fprintln(tw, "  (nothing scheduled)")
			continue
		}
		for _, item := range items {
			mark := "[ ]"
			if item.Taken {
				mark = "[x]"
			}
			note := ""
			switch {
			case item.IsCompleted:
				note = "completed"
			case item.OutOfStock:
				note = "out of stock"
			}
			fmt.Fprintf(tw, "  %s\t%s %s\tx%d\t%s\t%d left\t%s\t%s\n",
				mark, item.Name, item.Dose, item.Count, item.FoodRelation, item.Remaining, note, item.MedicineID)
		}
	}
	return tw.Flush()
}
