package apertura

// Key is a navigation key pressed inside the grid.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
	KeyShiftTab
	KeyEnter
)

// Action is what the focused cell should do after a key press.
type Action int

const (
	// ActionNone leaves focus where it is.
	ActionNone Action = iota
	// ActionMove moves focus to the returned cursor.
	ActionMove
	// ActionOpenLookup opens the code picker of the focused cell.
	ActionOpenLookup
	// ActionSubmit commits the focused cell.
	ActionSubmit
)

// Cursor addresses one cell: a row index and an index into FieldOrder.
type Cursor struct {
	Row   int
	Field int
}

// FieldName returns the focused field.
func (c Cursor) FieldName() Field {
	if c.Field < 0 || c.Field >= len(FieldOrder) {
		return ""
	}
	return FieldOrder[c.Field]
}

// Navigate computes the next focus for key in a grid of rows rows.
// Horizontal moves wrap between rows; the first and last cells stay put.
func Navigate(c Cursor, key Key, rows int) (Cursor, Action) {
	if rows <= 0 {
		return c, ActionNone
	}
	last := len(FieldOrder) - 1

	switch key {
	case KeyRight, KeyTab:
		switch {
		case c.Field < last:
			c.Field++
		case c.Row < rows-1:
			c.Row++
			c.Field = 0
		default:
			return c, ActionNone
		}
		return c, ActionMove

	case KeyLeft, KeyShiftTab:
		switch {
		case c.Field > 0:
			c.Field--
		case c.Row > 0:
			c.Row--
			c.Field = last
		default:
			return c, ActionNone
		}
		return c, ActionMove

	case KeyUp:
		if c.Row == 0 {
			return c, ActionNone
		}
		c.Row--
		return c, ActionMove

	case KeyDown:
		if c.Row >= rows-1 {
			return c, ActionNone
		}
		c.Row++
		return c, ActionMove

	case KeyEnter:
		if _, ok := c.FieldName().CodeType(); ok {
			return c, ActionOpenLookup
		}
		return c, ActionSubmit
	}
	return c, ActionNone
}

// Navigate moves c within this grid.
func (g *Grid) Navigate(c Cursor, key Key) (Cursor, Action) {
	return Navigate(c, key, g.Len())
}
