// Package timeutil converts candidate-local hours to UTC without
// daylight-saving drift: searches filter on working hours year-round, so the
// stored hour must not depend on when the answer was submitted.
package timeutil

import "time"

// Reference instants in winter and summer. The minimum of the two zone
// offsets is the standard (non-DST) offset for any IANA zone.
var (
	firstJanuary = time.Date(2020, time.January, 1, 1, 1, 0, 0, time.UTC)
	firstJuly    = time.Date(2020, time.July, 1, 1, 1, 0, 0, time.UTC)
)

// OffsetToUTCNoDST returns the standard UTC offset of an IANA timezone in
// minutes, ignoring daylight saving. ok is false for empty or unknown zones.
func OffsetToUTCNoDST(timezone string) (minutes int, ok bool) {
	if timezone == "" {
		return 0, false
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, false
	}

	_, janOffset := firstJanuary.In(loc).Zone()
	_, julOffset := firstJuly.In(loc).Zone()

	offset := janOffset
	if julOffset < offset {
		offset = julOffset
	}
	return offset / 60, true
}

// HourToUTCNoDST converts an hour (0-24) in the given timezone to the
// corresponding UTC hour using the DST-independent offset. Unknown zones are
// treated as UTC.
func HourToUTCNoDST(hour int, timezone string) int {
	offset, _ := OffsetToUTCNoDST(timezone)

	// Treat the hour as UTC and subtract the offset directly.
	t := time.Date(2020, time.January, 1, 0, 1, 0, 0, time.UTC).
		Add(time.Duration(hour) * time.Hour).
		Add(-time.Duration(offset) * time.Minute)
	return t.Hour()
}
