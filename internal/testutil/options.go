package testutil

import (
	"time"

	"github.com/zjrosen/smartnotes/internal/instance"
)

var defaultTime = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

// instanceData holds one instance and the files written beside it.
type instanceData struct {
	inst        instance.Instance
	notes       *string
	widgetFiles bool
	autoStartAt *time.Time
}

func defaultInstance(id string) instanceData {
	return instanceData{inst: instance.New(id, id, instance.ThemeDark, defaultTime)}
}

// InstanceOption configures an instance during builder setup.
type InstanceOption func(*instanceData)

// Name sets the display name. The default is the id.
func Name(name string) InstanceOption {
	return func(d *instanceData) { d.inst.Name = name }
}

// Theme sets the theme.
func Theme(theme instance.Theme) InstanceOption {
	return func(d *instanceData) { d.inst.Theme = theme }
}

// CreatedAt sets created_date and, when it is earlier, last_modified.
func CreatedAt(t time.Time) InstanceOption {
	return func(d *instanceData) {
		d.inst.CreatedDate = instance.At(t)
		if d.inst.LastModified.Before(t) {
			d.inst.LastModified = instance.At(t)
		}
	}
}

// ModifiedAt sets last_modified.
func ModifiedAt(t time.Time) InstanceOption {
	return func(d *instanceData) { d.inst.LastModified = instance.At(t) }
}

// Notes writes the notes file with text.
func Notes(text string) InstanceOption {
	return func(d *instanceData) { d.notes = &text }
}

// WidgetFiles writes the settings and both position files.
func WidgetFiles() InstanceOption {
	return func(d *instanceData) { d.widgetFiles = true }
}

// AutoStart adds an auto-start entry enabled at t.
func AutoStart(t time.Time) InstanceOption {
	return func(d *instanceData) { d.autoStartAt = &t }
}
