// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import "time"

// dosEpochYear is the first year representable in DOS date fields.
const dosEpochYear = 1980

// dosMaxYear is the last year representable in the 7-bit DOS year field.
const dosMaxYear = dosEpochYear + 127

// DOSDateTime packs t into DOS time and date fields using t's own location.
// Times outside 1980..2107 are clamped to the nearest representable value.
func DOSDateTime(t time.Time) (dosTime uint16, dosDate uint16) {
	year := t.Year()
	switch {
	case year < dosEpochYear:
		return 0, 1<<5 | 1
	case year > dosMaxYear:
		return 23<<11 | 59<<5 | 29, (dosMaxYear-dosEpochYear)<<9 | 12<<5 | 31
	}

	dosTime = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)            //nolint:gosec // fields are bounded by clock ranges
	dosDate = uint16((year-dosEpochYear)<<9 | int(t.Month())<<5 | t.Day()) //nolint:gosec // year bounded above
	return dosTime, dosDate
}

// TimeFromDOS expands DOS date and time fields into a time in loc.
// Seconds carry the two-second resolution of the format.
func TimeFromDOS(dosTime uint16, dosDate uint16, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	return time.Date(
		int(dosDate>>9)+dosEpochYear,
		time.Month(dosDate>>5&0x0f),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f)*2,
		0,
		loc,
	)
}
