package release

import "strconv"

// Window is the current period plus its neighbours. Previous and Next are
// nearest-first: Previous[0] is offset -1, Next[0] is offset +1.
type Window struct {
	Anchor    Date
	Width     int
	Alignment Alignment

	Current  Period
	Previous []Period
	Next     []Period
}

// At returns the period at a signed offset, if the window holds it.
func (w Window) At(offset int) (Period, bool) {
	switch {
	case offset == 0:
		return w.Current, true
	case offset < 0 && -offset <= len(w.Previous):
		return w.Previous[-offset-1], true
	case offset > 0 && offset <= len(w.Next):
		return w.Next[offset-1], true
	default:
		return Period{}, false
	}
}

// Len is the total number of periods in the window.
func (w Window) Len() int {
	return 1 + len(w.Previous) + len(w.Next)
}

// Offsets lists every offset in chronological order, e.g. [-2 -1 0 1].
func (w Window) Offsets() []int {
	offsets := make([]int, 0, w.Len())
	for i := len(w.Previous); i >= 1; i-- {
		offsets = append(offsets, -i)
	}
	offsets = append(offsets, 0)
	for i := 1; i <= len(w.Next); i++ {
		offsets = append(offsets, i)
	}
	return offsets
}

// Periods lists every period in chronological order, matching Offsets.
func (w Window) Periods() []Period {
	periods := make([]Period, 0, w.Len())
	for _, off := range w.Offsets() {
		p, _ := w.At(off)
		periods = append(periods, p)
	}
	return periods
}

// Find returns the offset of the period whose release label matches, if any.
func (w Window) Find(release string) (int, bool) {
	for _, off := range w.Offsets() {
		p, _ := w.At(off)
		if p.Release == release || p.Abbreviation == release || p.Folder == release {
			return off, true
		}
	}
	return 0, false
}

// OffsetLabel names an offset the way the release table shows it:
// "Current", "Previous", "2 back", "Next", "3 ahead".
func OffsetLabel(offset int) string {
	switch {
	case offset == 0:
		return "Current"
	case offset == -1:
		return "Previous"
	case offset == 1:
		return "Next"
	case offset < 0:
		return strconv.Itoa(-offset) + " back"
	default:
		return strconv.Itoa(offset) + " ahead"
	}
}

