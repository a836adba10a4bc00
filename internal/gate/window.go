package gate

import (
	"time"

	"github.com/gymmind/coach-api/internal/models"
)

// Window is the calendar-month usage window of an account. Month is 0-11,
// matching the stored document representation.
type Window struct {
	Plans int64
	PDFs  int64
	Month int
	Year  int
}

// windowOf extracts the stored usage window from an account document.
func windowOf(account *models.Account) Window {
	return Window{
		Plans: account.WindowPlans,
		PDFs:  account.WindowPDFs,
		Month: account.WindowMonth,
		Year:  account.WindowYear,
	}
}

// monthYear returns now's calendar month (0-11) and year.
func monthYear(now time.Time) (int, int) {
	return int(now.Month()) - 1, now.Year()
}

// ReconcileWindow returns the window adjusted to the calendar month of now.
// A window stored for a different month resets to zero counts; the discarded
// counts were already folded into the lifetime totals at increment time. The
// function is pure and idempotent: applying it twice yields the same result
// as once.
func ReconcileWindow(w Window, now time.Time) Window {
	month, year := monthYear(now)
	if w.Month == month && w.Year == year {
		return w
	}
	return Window{Month: month, Year: year}
}

// windowStale reports whether the stored window belongs to a past month.
func windowStale(w Window, now time.Time) bool {
	month, year := monthYear(now)
	return w.Month != month || w.Year != year
}

// firstDayOfNextMonth returns midnight on the first day of the month after
// now, in now's location.
func firstDayOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}
