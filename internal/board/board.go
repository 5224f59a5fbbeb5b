package board

import (
	"fmt"
	"sort"
)

// Display classes toggled on cells.
const (
	ClassGoblin    = "has-goblin"
	ClassActive    = "active"
	ClassHit       = "hit"
	ClassHighlight = "highlight"
)

const DefaultSize = 4

// MaxSize is the largest supported side; rows are labelled A to Z.
const MaxSize = 26

type LabelStyle int

const (
	// LabelRowCol renders "2-3".
	LabelRowCol LabelStyle = iota
	// LabelLetterRow renders "B3".
	LabelLetterRow
)

type Cell struct {
	Index    int
	Row      int
	Col      int
	Occupied bool
	classes  map[string]bool
}

// Classes returns the cell's display classes in sorted order.
func (c *Cell) Classes() []string {
	list := make([]string, 0, len(c.classes))
	for cl := range c.classes {
		list = append(list, cl)
	}
	sort.Strings(list)
	return list
}

func (c *Cell) HasClass(class string) bool {
	return c.classes[class]
}

// Board is a square grid of cells in row-major order. It is not safe for
// concurrent use; the owning game serialises access.
type Board struct {
	size  int
	cells []*Cell
}

func New(size int) *Board {
	if size < 1 || size > MaxSize {
		size = DefaultSize
	}
	b := &Board{size: size}
	b.cells = make([]*Cell, 0, size*size)
	for i := 0; i < size*size; i++ {
		b.cells = append(b.cells, &Cell{
			Index:   i,
			Row:     i / size,
			Col:     i % size,
			classes: make(map[string]bool),
		})
	}
	return b
}

func (b *Board) Size() int { return b.size }

func (b *Board) Len() int { return len(b.cells) }

// Cell returns nil for an out-of-range index.
func (b *Board) Cell(i int) *Cell {
	if i < 0 || i >= len(b.cells) {
		return nil
	}
	return b.cells[i]
}

func (b *Board) Cells() []*Cell {
	return b.cells
}

// EmptyCells returns the cells without an occupant, in board order.
func (b *Board) EmptyCells() []*Cell {
	empty := make([]*Cell, 0, len(b.cells))
	for _, c := range b.cells {
		if !c.Occupied {
			empty = append(empty, c)
		}
	}
	return empty
}

// Occupied returns the index of the occupied cell, or -1.
func (b *Board) Occupied() int {
	for _, c := range b.cells {
		if c.Occupied {
			return c.Index
		}
	}
	return -1
}

// Occupy marks cell i as holding the target and adds the occupant class.
func (b *Board) Occupy(i int, class string) bool {
	c := b.Cell(i)
	if c == nil || c.Occupied {
		return false
	}
	c.Occupied = true
	if class != "" {
		c.classes[class] = true
	}
	return true
}

// Vacate clears the occupancy flag and the occupant classes of cell i.
func (b *Board) Vacate(i int) {
	c := b.Cell(i)
	if c == nil {
		return
	}
	c.Occupied = false
	delete(c.classes, ClassGoblin)
	delete(c.classes, ClassActive)
}

func (b *Board) AddClass(i int, class string) {
	if c := b.Cell(i); c != nil {
		c.classes[class] = true
	}
}

func (b *Board) RemoveClass(i int, class string) {
	if c := b.Cell(i); c != nil {
		delete(c.classes, class)
	}
}

func (b *Board) HasClass(i int, class string) bool {
	if c := b.Cell(i); c != nil {
		return c.classes[class]
	}
	return false
}

// Highlight marks cell i and clears the mark from every other cell.
func (b *Board) Highlight(i int) {
	for _, c := range b.cells {
		if c.Index == i {
			c.classes[ClassHighlight] = true
		} else {
			delete(c.classes, ClassHighlight)
		}
	}
}

func (b *Board) ClearHighlights() {
	for _, c := range b.cells {
		delete(c.classes, ClassHighlight)
	}
}

// Label names cell i for display. Out-of-range indices yield "".
func (b *Board) Label(i int, style LabelStyle) string {
	c := b.Cell(i)
	if c == nil {
		return ""
	}
	if style == LabelLetterRow {
		return fmt.Sprintf("%c%d", 'A'+rune(c.Row), c.Col+1)
	}
	return fmt.Sprintf("%d-%d", c.Row+1, c.Col+1)
}

func (b *Board) Labels(style LabelStyle) []string {
	labels := make([]string, len(b.cells))
	for i := range b.cells {
		labels[i] = b.Label(i, style)
	}
	return labels
}
