package engine

// WaitingArea is the bounded holding pen for people who reached the exit row
// without a matching bus. Slots are filled lowest index first.
type WaitingArea struct {
	slots []*Person
	count int
}

// NewWaitingArea creates a waiting area with the given number of slots
func NewWaitingArea(capacity int) *WaitingArea {
	if capacity < 0 {
		capacity = 0
	}
	return &WaitingArea{slots: make([]*Person, capacity)}
}

// Capacity returns the number of slots
func (w *WaitingArea) Capacity() int { return len(w.slots) }

// OccupiedCount returns the number of occupied slots
func (w *WaitingArea) OccupiedCount() int { return w.count }

// IsFull reports whether every slot is taken
func (w *WaitingArea) IsFull() bool { return w.count >= len(w.slots) }

// IsEmpty reports whether no slot is taken
func (w *WaitingArea) IsEmpty() bool { return w.count == 0 }

// TryAdd parks a person in the first empty slot. It returns false when full.
func (w *WaitingArea) TryAdd(p *Person) bool {
	if p == nil || w.IsFull() {
		return false
	}
	for i, slot := range w.slots {
		if slot == nil {
			w.slots[i] = p
			w.count++
			p.Status = Waiting
			p.Cell = nil
			return true
		}
	}
	return false
}

// RemoveByColor removes every person of the given color in slot order
func (w *WaitingArea) RemoveByColor(color Color) []*Person {
	return w.TakeByColor(color, len(w.slots))
}

// TakeByColor removes at most max people of the given color in slot order
func (w *WaitingArea) TakeByColor(color Color, max int) []*Person {
	var taken []*Person
	for i, slot := range w.slots {
		if len(taken) >= max {
			break
		}
		if slot != nil && slot.Color == color {
			taken = append(taken, slot)
			w.slots[i] = nil
			w.count--
		}
	}
	return taken
}

// CountByColor returns how many waiting people have the given color
func (w *WaitingArea) CountByColor(color Color) int {
	n := 0
	for _, slot := range w.slots {
		if slot != nil && slot.Color == color {
			n++
		}
	}
	return n
}

// Colors returns the distinct colors present, in slot order
func (w *WaitingArea) Colors() []Color {
	var seen [ColorCount]bool
	var colors []Color
	for _, slot := range w.slots {
		if slot != nil && slot.Color.Valid() && !seen[slot.Color] {
			seen[slot.Color] = true
			colors = append(colors, slot.Color)
		}
	}
	return colors
}

// Slots returns the person id per slot, NoOccupant for empty slots
func (w *WaitingArea) Slots() []int {
	ids := make([]int, len(w.slots))
	for i, slot := range w.slots {
		if slot == nil {
			ids[i] = NoOccupant
		} else {
			ids[i] = slot.ID
		}
	}
	return ids
}

// place puts a person into a specific slot; used when restoring snapshots
func (w *WaitingArea) place(slot int, p *Person) bool {
	if slot < 0 || slot >= len(w.slots) || w.slots[slot] != nil || p == nil {
		return false
	}
	w.slots[slot] = p
	w.count++
	p.Status = Waiting
	p.Cell = nil
	return true
}

// clear empties every slot
func (w *WaitingArea) clear() {
	for i := range w.slots {
		w.slots[i] = nil
	}
	w.count = 0
}

// consistent cross-checks the tracked count against the slots
func (w *WaitingArea) consistent() bool {
	n := 0
	for _, slot := range w.slots {
		if slot != nil {
			n++
		}
	}
	return n == w.count && w.count <= len(w.slots)
}
