package timestamp

import (
	"fmt"
	"time"
)

// Org performs day-boundary math in the organization's configured timezone.
// The zone must be DST-free: "today" and "N days" must mean the same thing
// in July as in January. All boundary results are canonical UTC strings.
type Org struct {
	name string
	loc  *time.Location
}

// NewOrg loads the named timezone and rejects zones that observe DST.
func NewOrg(name string) (*Org, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load org timezone %q: %w", name, err)
	}

	if err := checkFixedOffset(loc); err != nil {
		return nil, fmt.Errorf("org timezone %q: %w", name, err)
	}

	return &Org{name: name, loc: loc}, nil
}

// Name returns the configured timezone name.
func (o *Org) Name() string {
	return o.name
}

// Location returns the underlying time.Location.
func (o *Org) Location() *time.Location {
	return o.loc
}

// LocalMidnight returns the org-local midnight of the day containing t,
// as a UTC instant.
func (o *Org) LocalMidnight(t time.Time) time.Time {
	local := t.In(o.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, o.loc).UTC()
}

// MidnightAfterDays returns the canonical timestamp of org-local midnight
// `days` days after the day containing t. A 7-day snooze taken at local
// 15:00 lands on local midnight of today+7, not now+168h.
func (o *Org) MidnightAfterDays(t time.Time, days int) string {
	local := t.In(o.loc)
	boundary := time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, o.loc)
	return Format(boundary)
}

// DaysAgoBoundary returns the canonical timestamp of org-local midnight
// `days` days before the day containing t. Used for rolling windows that
// must align to local day boundaries, never to a rolling 24h clock.
func (o *Org) DaysAgoBoundary(t time.Time, days int) string {
	return o.MidnightAfterDays(t, -days)
}

// SameLocalDay reports whether a and b fall on the same org-local calendar day.
func (o *Org) SameLocalDay(a, b time.Time) bool {
	al, bl := a.In(o.loc), b.In(o.loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}

// checkFixedOffset verifies the zone uses one offset year-round by sampling
// midsummer and midwinter of the current year.
func checkFixedOffset(loc *time.Location) error {
	year := time.Now().Year()
	_, winter := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, summer := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()

	if winter != summer {
		return fmt.Errorf("zone observes DST (offset %d in January, %d in July)", winter, summer)
	}

	return nil
}
