package testutil

import "time"

// Ids used by WithStandardData.
const (
	GroceriesID = "aaaaaaaa-1111-4000-8000-000000000001"
	WorkID      = "bbbbbbbb-2222-4000-8000-000000000002"
	OrphanID    = "cccccccc-3333-4000-8000-000000000003"
)

// WithStandardData adds the standard dataset relative to now:
//
//	Groceries  created a week ago, notes, all widget files, auto-start
//	Work       created yesterday, light theme, no notes file
//	Gone       auto-start entry only (metadata deleted)
func (b *Builder) WithStandardData(now time.Time) *Builder {
	lastWeek := now.Add(-7 * 24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	return b.
		WithInstance(GroceriesID,
			Name("Groceries"), CreatedAt(lastWeek), ModifiedAt(yesterday),
			Notes("milk\neggs\n"), WidgetFiles(), AutoStart(lastWeek.Add(time.Hour))).
		WithInstance(WorkID,
			Name("Work"), Theme("light"), CreatedAt(yesterday)).
		WithOrphanAutoStart(OrphanID, "Gone", lastWeek)
}
