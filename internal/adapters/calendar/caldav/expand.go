package caldav

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"calendar-assistant/internal/domain/events"
)

// maxOccurrencesPerEvent acota la expansión de una RRULE sin UNTIL/COUNT
// dentro de la ventana pedida.
const maxOccurrencesPerEvent = 1000

// expandCalendar convierte los VEVENT de un objeto de calendario en eventos
// de wire. Un VEVENT con RRULE se expande en sus instancias dentro de
// [from, to], cada una con un external id propio (uid#start) para que la
// reconciliación las trate como eventos independientes.
func expandCalendar(cal *ical.Calendar, from, to time.Time) ([]events.RemoteEvent, error) {
	out := make([]events.RemoteEvent, 0)

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		base, start, end, allDay, err := readVEvent(comp)
		if err != nil {
			return nil, err
		}

		rr := comp.Props.Get(ical.PropRecurrenceRule)
		if rr == nil {
			out = append(out, withInterval(base, start, end, allDay, false))
			continue
		}

		occurrences, err := expandRRule(comp, rr.Value, start, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand rrule for %s: %w", base.ID, err)
		}

		duration := end.Sub(start)
		for _, occStart := range occurrences {
			occEnd := occStart.Add(duration)
			if allDay {
				day := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
				occStart = day
				occEnd = day.Add(24 * time.Hour)
			}
			out = append(out, withInterval(base, occStart, occEnd, allDay, true))
		}
	}
	return out, nil
}

func readVEvent(comp *ical.Component) (events.RemoteEvent, time.Time, time.Time, bool, error) {
	var base events.RemoteEvent

	uidProp := comp.Props.Get(ical.PropUID)
	if uidProp == nil || uidProp.Value == "" {
		return base, time.Time{}, time.Time{}, false, fmt.Errorf("vevent without UID")
	}
	base.ID = uidProp.Value

	if p := comp.Props.Get(ical.PropSummary); p != nil {
		base.Title = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		base.Description = p.Value
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		base.Location = p.Value
	}
	for _, p := range comp.Props.Values(ical.PropAttendee) {
		base.Attendees = append(base.Attendees, strings.TrimPrefix(p.Value, "mailto:"))
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return base, time.Time{}, time.Time{}, false, fmt.Errorf("vevent %s without DTSTART", base.ID)
	}
	allDay := startProp.ValueType() == ical.ValueDate

	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return base, time.Time{}, time.Time{}, false, fmt.Errorf("vevent %s: bad DTSTART: %w", base.ID, err)
	}

	var end time.Time
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err = endProp.DateTime(time.UTC)
		if err != nil {
			return base, time.Time{}, time.Time{}, false, fmt.Errorf("vevent %s: bad DTEND: %w", base.ID, err)
		}
	} else if allDay {
		end = start.Add(24 * time.Hour)
	} else {
		end = start.Add(time.Hour)
	}

	return base, start, end, allDay, nil
}

func expandRRule(comp *ical.Component, raw string, dtstart, from, to time.Time) ([]time.Time, error) {
	rule, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, err
	}
	rule.DTStart(dtstart)

	var set rrule.Set
	set.RRule(rule)

	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		for _, part := range strings.Split(p.Value, ",") {
			if ex, err := parseICSTime(strings.TrimSpace(part), dtstart.Location()); err == nil {
				set.ExDate(ex.In(dtstart.Location()))
			}
		}
	}

	// Between trabaja en la zona del DTSTART del evento.
	occ := set.Between(from.In(dtstart.Location()), to.In(dtstart.Location()), true)
	if len(occ) > maxOccurrencesPerEvent {
		occ = occ[:maxOccurrencesPerEvent]
	}
	return occ, nil
}

func withInterval(base events.RemoteEvent, start, end time.Time, allDay, instance bool) events.RemoteEvent {
	e := base
	if instance {
		e.ID = fmt.Sprintf("%s#%s", base.ID, start.UTC().Format(time.RFC3339))
	}
	if allDay {
		e.Start = events.RemoteTime{Date: start.Format("2006-01-02")}
		e.End = events.RemoteTime{Date: end.Format("2006-01-02")}
	} else {
		e.Start = events.RemoteTime{DateTime: start.Format(time.RFC3339)}
		e.End = events.RemoteTime{DateTime: end.Format(time.RFC3339)}
	}
	return e
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, fmt.Errorf("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
