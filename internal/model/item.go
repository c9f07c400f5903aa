package model

// ReminderItem is the display form of a reminder handed to the UI and to
// notifications. It carries the same fields as [Reminder]; the split keeps
// the persisted shape independent from what the view layer renders.
type ReminderItem struct {
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	ID          string
}

// NewReminderItem builds an item with a freshly generated ID.
func NewReminderItem(title, description, location string, lat, lng *float64) ReminderItem {
	return ReminderItem{
		Title:       title,
		Description: description,
		Location:    location,
		Latitude:    lat,
		Longitude:   lng,
		ID:          NewID(),
	}
}

// ItemFromReminder converts the persisted form into the display form.
func ItemFromReminder(r Reminder) ReminderItem {
	return ReminderItem{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		ID:          r.ID,
	}
}

// Reminder converts the item back into the persisted form. An empty ID is
// replaced with a generated one.
func (i ReminderItem) Reminder() Reminder {
	return NewReminder(i.ID, i.Title, i.Description, i.Location, i.Latitude, i.Longitude)
}
