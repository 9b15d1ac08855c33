package entity

import "time"

func unixMilliToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func parseTime(s, layout string) (time.Time, bool) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
