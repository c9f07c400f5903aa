package reminders

import (
	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/state"
)

// rowToReminder converts a database row into the shared model type.
// Coordinate pointers are copied so callers cannot alias the row.
func rowToReminder(row *state.Reminder) model.Reminder {
	return model.Reminder{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Latitude:    copyFloat(row.Latitude),
		Longitude:   copyFloat(row.Longitude),
	}
}

// reminderToRow converts the model type into a database row.
func reminderToRow(r model.Reminder) *state.Reminder {
	return &state.Reminder{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Latitude:    copyFloat(r.Latitude),
		Longitude:   copyFloat(r.Longitude),
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
