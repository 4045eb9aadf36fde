// Package export renders release windows for other tools.
package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/warp/qrelease/release"
)

const productID = "-//warp//qrelease//EN"

// eventNamespace scopes event UIDs so the same release on the same grid
// always gets the same UID, letting calendar clients update in place.
var eventNamespace = uuid.MustParse("8f0c7a52-37a4-4c55-9a55-0c8d2b1f6a10")

// EventUID returns the stable UID of a period's event.
func EventUID(p release.Period, align release.Alignment) string {
	key := fmt.Sprintf("%s/%d/%s", p.Release, p.Width, align)
	return uuid.NewSHA1(eventNamespace, []byte(key)).String() + "@qrelease"
}

// ICS serializes the window as an iCalendar feed with one all-day event per
// period, in chronological order. stamp is written as DTSTAMP.
func ICS(w release.Window, name string, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, off := range w.Offsets() {
		p, _ := w.At(off)
		event := cal.AddEvent(EventUID(p, w.Alignment))
		event.SetDtStampTime(stamp.UTC())
		event.SetAllDayStartAt(p.Start.Time)
		event.SetAllDayEndAt(p.End.AddDays(1).Time) // DTEND is exclusive
		event.SetSummary("Release " + p.Release)
		event.SetDescription(fmt.Sprintf("%s release %s (%s), folder %s, %d month(s)",
			release.OffsetLabel(off), p.Release, p.Abbreviation, p.Folder, p.Width))
	}
	return cal.Serialize()
}
