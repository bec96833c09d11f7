package availability

import (
	"time"

	"github.com/sailingloc/boatbooking/internal/domain"
)

// GridCells is the fixed size of the month view: 6 weeks of 7 days, with
// leading and trailing days borrowed from the adjacent months.
const GridCells = 42

type Cell struct {
	Date           time.Time                 `json:"date"`
	InCurrentMonth bool                      `json:"in_current_month"`
	IsToday        bool                      `json:"is_today"`
	IsPast         bool                      `json:"is_past"`
	IsBlocked      bool                      `json:"is_blocked"`
	IsBooked       bool                      `json:"is_booked"`
	IsSelected     bool                      `json:"is_selected"`
	InRange        bool                      `json:"in_range"`
	Period         *domain.UnavailablePeriod `json:"period,omitempty"`
}

type SelectionMode string

const (
	ModeBlock   SelectionMode = "block"
	ModeUnblock SelectionMode = "unblock"
)

// Selection is the calendar's UI-local state: the active mode, an
// in-progress block range, and the unblock multi-select set. Grid queries
// read it but never mutate it; only Click and SwitchMode do.
type Selection struct {
	Mode         SelectionMode
	PendingStart *time.Time
	Range        *domain.DateRange
	Days         map[time.Time]bool
}

func NewSelection(mode SelectionMode) *Selection {
	return &Selection{Mode: mode, Days: make(map[time.Time]bool)}
}

// SwitchMode changes the interaction mode. The two modes are mutually
// exclusive, so any in-progress selection is dropped.
func (s *Selection) SwitchMode(mode SelectionMode) {
	if s.Mode != mode {
		s.Mode = mode
		s.Reset()
	}
}

func (s *Selection) Reset() {
	s.PendingStart = nil
	s.Range = nil
	s.Days = make(map[time.Time]bool)
}

// SelectedDays returns the unblock multi-select set in stable order.
func (s *Selection) SelectedDays() []time.Time {
	var days []time.Time
	for d, on := range s.Days {
		if on {
			days = append(days, d)
		}
	}
	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			if days[j].Before(days[i]) {
				days[i], days[j] = days[j], days[i]
			}
		}
	}
	return days
}

// OriginatingBlocks maps the unblock multi-select set onto the distinct
// manual blocks covering the selected days. Removing each of these blocks
// frees every selected day.
func (s *Selection) OriginatingBlocks(idx *Index) []domain.UnavailablePeriod {
	var blocks []domain.UnavailablePeriod
	seen := make(map[string]bool)
	for _, d := range s.SelectedDays() {
		p := idx.CoveringBlock(d)
		if p == nil || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		blocks = append(blocks, *p)
	}
	return blocks
}

// Click applies one day click under the current mode and reports whether
// the selection changed. Past days and booking-covered days are inert in
// both modes; unblock mode additionally requires a manual-block cover.
func (s *Selection) Click(day, today time.Time, idx *Index) bool {
	d := domain.Midnight(day)
	if d.Before(domain.Midnight(today)) {
		return false
	}
	if p := idx.Covering(d); p != nil && p.Kind == domain.PeriodKindBooking {
		return false
	}

	switch s.Mode {
	case ModeBlock:
		if s.Range != nil {
			// A settled range restarts selection from this click.
			s.Range = nil
			s.PendingStart = &d
			return true
		}
		if s.PendingStart == nil {
			s.PendingStart = &d
			return true
		}
		start, end := *s.PendingStart, d
		if end.Before(start) {
			start, end = end, start
		}
		r, err := domain.NewDateRange(start, end)
		if err != nil {
			return false
		}
		s.Range = &r
		s.PendingStart = nil
		return true

	case ModeUnblock:
		if idx.CoveringBlock(d) == nil {
			return false
		}
		s.Days[d] = !s.Days[d]
		return true
	}
	return false
}

// MonthGrid builds the fixed 42-cell, Monday-first grid for the given
// month, annotated from the index snapshot and the current selection.
func MonthGrid(year int, month time.Month, today time.Time, idx *Index, sel *Selection) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := (int(first.Weekday()) + 6) % 7 // remap so Monday=0 .. Sunday=6
	start := first.AddDate(0, 0, -lead)
	now := domain.Midnight(today)

	cells := make([]Cell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		cell := Cell{
			Date:           d,
			InCurrentMonth: d.Month() == month && d.Year() == year,
			IsToday:        d.Equal(now),
			IsPast:         d.Before(now),
		}

		if p := idx.Covering(d); p != nil {
			cell.Period = p
			if p.Kind == domain.PeriodKindBooking {
				cell.IsBooked = true
			} else {
				cell.IsBlocked = true
			}
		}

		if sel != nil {
			annotateSelection(&cell, d, sel)
		}
		cells = append(cells, cell)
	}
	return cells
}

func annotateSelection(cell *Cell, d time.Time, sel *Selection) {
	switch sel.Mode {
	case ModeBlock:
		if sel.Range != nil && sel.Range.Contains(d) {
			cell.InRange = true
			cell.IsSelected = d.Equal(sel.Range.Start) || d.Equal(sel.Range.End)
		} else if sel.PendingStart != nil && d.Equal(*sel.PendingStart) {
			cell.IsSelected = true
		}
	case ModeUnblock:
		cell.IsSelected = sel.Days[d]
	}
}
