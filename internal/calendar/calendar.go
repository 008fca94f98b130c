// Package calendar renders events as iCalendar documents.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/config"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

const productID = "-//Escala//Volunteer Scheduling//PT"

// Reminder shown one hour before the event starts.
const (
	reminderTrigger = "-PT1H"
	reminderText    = "Lembrete Escala PASCOM"
)

// Exporter converts events to .ics payloads. Events carry month and day
// only, so they are placed in the year of the export.
type Exporter struct {
	loc       *time.Location
	duration  time.Duration
	organizer string
	domain    string
	now       func() time.Time
}

// NewExporter builds an Exporter from calendar settings.
func NewExporter(cfg config.Calendar) (*Exporter, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &Exporter{
		loc:       loc,
		duration:  cfg.EventDuration,
		organizer: cfg.Organizer,
		domain:    cfg.Domain,
		now:       time.Now,
	}, nil
}

// Location is the timezone events are scheduled in.
func (x *Exporter) Location() *time.Location { return x.loc }

// Start returns the event's start time in the exporter's timezone.
func (x *Exporter) Start(ev *model.Event) (time.Time, error) {
	month, err := strconv.Atoi(ev.Month)
	if err != nil {
		return time.Time{}, fmt.Errorf("event month %q: %w", ev.Month, err)
	}
	day, err := strconv.Atoi(ev.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("event day %q: %w", ev.Day, err)
	}
	clock, err := time.Parse("15:04", ev.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("event time %q: %w", ev.Time, err)
	}
	year := x.now().In(x.loc).Year()
	start := time.Date(year, time.Month(month), day, clock.Hour(), clock.Minute(), 0, 0, x.loc)
	if start.Month() != time.Month(month) || start.Day() != day {
		return time.Time{}, fmt.Errorf("event date %s/%s does not exist in %d", ev.Day, ev.Month, year)
	}
	return start, nil
}

// Export renders a single-event calendar.
func (x *Exporter) Export(ev *model.Event) (string, error) {
	start, err := x.Start(ev)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	ve := cal.AddEvent(fmt.Sprintf("event-%d@%s", ev.ID, x.domain))
	ve.SetDtStampTime(x.now().UTC())
	ve.SetStartAt(start)
	ve.SetEndAt(start.Add(x.duration))
	ve.SetSummary(summary(ev))
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	ve.SetDescription(description(ev))
	ve.SetStatus(ical.ObjectStatusConfirmed)

	alarm := ve.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetTrigger(reminderTrigger)
	alarm.SetProperty(ical.ComponentPropertyDescription, reminderText)
	if x.organizer != "" {
		ve.SetOrganizer("mailto:noreply@"+x.domain, ical.WithCN(x.organizer))
	}
	return cal.Serialize(), nil
}

func summary(ev *model.Event) string {
	if ev.Description == "" {
		return "Escala"
	}
	return "Escala - " + ev.Description
}

// description lists the roster, one slot per line.
func description(ev *model.Event) string {
	var b strings.Builder
	for i, s := range ev.Slots {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. ", s.Order)
		if s.Function != "" {
			b.WriteString(s.Function + ": ")
		}
		if s.Vacant() {
			b.WriteString("(vago)")
		} else {
			b.WriteString(s.OccupantUsername)
		}
	}
	return b.String()
}
