package domain

const (
	MaxGridSize     = 7
	MinGridSize     = 3
	DefaultGridSize = 6
)

// Board is the full grid. Only the centred active sub-grid is playable.
type Board [MaxGridSize][MaxGridSize]*Card

// GridOffset is the first playable row and column for an active size.
func GridOffset(size int) int {
	return (MaxGridSize - size) / 2
}

func ValidGridSize(size int) bool {
	return size >= MinGridSize && size <= MaxGridSize
}

func InBounds(row, col int) bool {
	return row >= 0 && row < MaxGridSize && col >= 0 && col < MaxGridSize
}

// InActiveGrid reports whether a cell is inside the playable sub-grid.
func InActiveGrid(size, row, col int) bool {
	off := GridOffset(size)
	return row >= off && row < off+size && col >= off && col < off+size
}

// OnActiveBorder reports whether a playable cell touches the sub-grid edge.
func OnActiveBorder(size, row, col int) bool {
	if !InActiveGrid(size, row, col) {
		return false
	}
	off := GridOffset(size)
	last := off + size - 1
	return row == off || row == last || col == off || col == last
}

func (b Board) Clone() Board {
	var out Board
	for r := range b {
		for c, card := range b[r] {
			if card != nil {
				cp := card.Clone()
				out[r][c] = &cp
			}
		}
	}
	return out
}

func (b *Board) Equal(o *Board) bool {
	for r := range b {
		for c := range b[r] {
			x, y := b[r][c], o[r][c]
			switch {
			case x == nil && y == nil:
			case x == nil || y == nil:
				return false
			case !x.Equal(*y):
				return false
			}
		}
	}
	return true
}

// Locate returns the cell holding the card with the given id.
func (b *Board) Locate(cardID string) (row, col int, ok bool) {
	for r := range b {
		for c, card := range b[r] {
			if card != nil && card.ID == cardID {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Each calls fn for every occupied cell in row-major order.
func (b *Board) Each(fn func(row, col int, card *Card)) {
	for r := range b {
		for c, card := range b[r] {
			if card != nil {
				fn(r, c, card)
			}
		}
	}
}

// RemoveOwnedBy clears every cell occupied by a card of the given owner.
func (b *Board) RemoveOwnedBy(ownerID int) {
	for r := range b {
		for c, card := range b[r] {
			if card != nil && card.OwnerID == ownerID {
				b[r][c] = nil
			}
		}
	}
}
