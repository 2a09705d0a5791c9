package series

import (
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Cursor is the simulated "now" of one run. Only the execution loop advances it,
// one bar at a time; every point-in-time accessor checks reads against it.
type Cursor struct {
	position int
}

// NewCursor returns a cursor positioned before the first bar.
func NewCursor() *Cursor {
	return &Cursor{position: -1}
}

// Position returns the index of the bar currently being processed, or -1 before the run starts.
func (c *Cursor) Position() int {
	return c.position
}

// Advance moves to the next bar and returns its index.
func (c *Cursor) Advance() int {
	c.position++

	return c.position
}

// Check fails with a look-ahead violation when index lies beyond the current bar.
func (c *Cursor) Check(what string, index int) error {
	if index > c.position {
		return errors.LookaheadError(what, index, c.position)
	}

	return nil
}

// View is a cursor-bound, read-only accessor over a Store. It never returns a bar
// after the cursor.
type View struct {
	store  *Store
	cursor *Cursor
}

func NewView(store *Store, cursor *Cursor) View {
	return View{store: store, cursor: cursor}
}

// Index returns the current bar index.
func (v View) Index() int {
	return v.cursor.Position()
}

// Current returns the bar being processed.
func (v View) Current() types.Bar {
	bar, _ := v.store.Bar(v.cursor.Position())

	return bar
}

// Bar returns the bar at absolute index i, which must not be after the current bar.
func (v View) Bar(i int) (types.Bar, error) {
	if err := v.cursor.Check("bar", i); err != nil {
		return types.Bar{}, err
	}

	return v.store.Bar(i)
}

// Ago returns the bar k positions before the current one (Ago(0) is the current bar).
func (v View) Ago(k int) (types.Bar, error) {
	if k < 0 {
		return types.Bar{}, errors.LookaheadError("bar", v.cursor.Position()-k, v.cursor.Position())
	}

	return v.store.Bar(v.cursor.Position() - k)
}

// Window returns the last n bars ending at the current bar, clipped at the series start.
func (v View) Window(n int) ([]types.Bar, error) {
	return v.store.Window(v.cursor.Position(), n)
}

// WindowAt returns the last n bars ending at i, which must not be after the current bar.
func (v View) WindowAt(i, n int) ([]types.Bar, error) {
	if err := v.cursor.Check("bar window", i); err != nil {
		return nil, err
	}

	return v.store.Window(i, n)
}

// Value returns a column value (bar field or extra column) at the current bar.
func (v View) Value(column string) (float64, error) {
	return v.store.ColumnValue(column, v.cursor.Position())
}

// ValueAt returns a column value at index i, which must not be after the current bar.
func (v View) ValueAt(column string, i int) (float64, error) {
	if err := v.cursor.Check("column "+column, i); err != nil {
		return 0, err
	}

	return v.store.ColumnValue(column, i)
}
