package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// CalendarEvent is one weekly recurring entry of a timetable.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// ByDay holds RFC 5545 day codes (MO, TU, ...). Empty means a single occurrence.
	ByDay []string
	Until time.Time
}

// ICSExporter renders events into an iCalendar feed.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter builds an exporter stamping productID on every feed.
func NewICSExporter(productID string) *ICSExporter {
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render encodes events as VEVENTs of one VCALENDAR.
func (e *ICSExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, e.productID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	stamp := e.now().UTC()
	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, ev.UID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
		event.Props.SetText(ical.PropSummary, ev.Summary)
		if ev.Description != "" {
			event.Props.SetText(ical.PropDescription, ev.Description)
		}
		if ev.Location != "" {
			event.Props.SetText(ical.PropLocation, ev.Location)
		}
		if len(ev.ByDay) > 0 {
			rule := ical.NewProp(ical.PropRecurrenceRule)
			rule.Value = "FREQ=WEEKLY;BYDAY=" + strings.Join(ev.ByDay, ",")
			if !ev.Until.IsZero() {
				rule.Value += ";UNTIL=" + ev.Until.UTC().Format("20060102T150405Z")
			}
			event.Props.Set(rule)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	buf := &bytes.Buffer{}
	if err := ical.NewEncoder(buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode ics: %w", err)
	}
	return buf.Bytes(), nil
}
