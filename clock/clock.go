// Package clock converts the Modified Julian Date and time fields carried in
// RDS group type 4A into a Gregorian local time, per the classical MJD
// formulae used by the RBDS clock group.
package clock

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// dayLength gives the day count of each Gregorian month, February assuming
// a non-leap year; monthLength adjusts it for leap years on the fly.
var dayLength = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// outputFormat is compiled once and reused for every 4A group. It renders
// the "YYYY-MM-DD HH:MM" part of a clock update line; String appends the
// " (+HH:MM)" offset.
var outputFormat = func() *strftime.Strftime {
	f, err := strftime.New("%Y-%m-%d %H:%M")
	if err != nil {
		panic(err)
	}
	return f
}()

// DateTime is a decoded RDS clock: a UTC civil date/time plus the signed
// local offset (in minutes) that was carried alongside it.
type DateTime struct {
	Year, Month, Day int
	Hour, Minute     int
	OffsetMinutes    int // signed, local = UTC + OffsetMinutes
}

func isLeapYear(year int) bool {
	return year%4 == 0
}

func monthLength(year, month int) int {
	if month == 2 && isLeapYear(year) {
		return 29
	}
	return dayLength[month-1]
}

// FromMJD reconstructs the Gregorian date from a 17-bit Modified Julian Date
// using the classical integer formulae from the RBDS spec.
func FromMJD(mjd int) (year, month, day int) {
	year0 := int((float64(mjd) - 15078.2) / 365.25)
	month0 := int((float64(mjd) - 14956.1 - float64(int(float64(year0)*365.25))) / 30.6001)
	day = mjd - 14956 - int(float64(year0)*365.25) - int(float64(month0)*30.6001)

	k := 0
	if month0 == 14 || month0 == 15 {
		k = 1
	}
	year = year0 + k + 1900
	month = month0 - 1 - 12*k
	return year, month, day
}

// ToMJD is the algebraic inverse of FromMJD's formulae, used only to test
// the round-trip invariant; it is not exercised by the decoder itself.
func ToMJD(year, month, day int) int {
	l := 0
	if month == 1 || month == 2 {
		l = 1
	}
	y := year - 1900
	return 14956 + day + int(float64(y-l)*365.25) + int(float64(month+1+12*l)*30.6001)
}

// Decode combines the raw MJD, UTC hour/minute, and the signed half-hour
// local offset into a DateTime with UTC carried forward into local time,
// propagating minute -> hour -> day -> month carries with month-length and
// leap-year awareness.
func Decode(mjd, utcHour, utcMinute int, offsetHalfHours int, negativeOffset bool) DateTime {
	year, month, day := FromMJD(mjd)

	offsetMinutes := offsetHalfHours * 30
	if negativeOffset {
		offsetMinutes = -offsetMinutes
	}

	minute := utcMinute + offsetMinutes%60
	hour := utcHour + offsetMinutes/60

	if minute < 0 {
		minute += 60
		hour--
	} else if minute >= 60 {
		minute -= 60
		hour++
	}

	for hour < 0 {
		hour += 24
		day--
	}
	for hour >= 24 {
		hour -= 24
		day++
	}

	for day < 1 {
		month--
		if month < 1 {
			month = 12
			year--
		}
		day += monthLength(year, month)
	}
	for day > monthLength(year, month) {
		day -= monthLength(year, month)
		month++
		if month > 12 {
			month = 1
			year++
		}
	}

	return DateTime{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, OffsetMinutes: offsetMinutes}
}

// String renders the DateTime as "YYYY-MM-DD HH:MM (+HH:MM)", the literal
// line format emitted for a group type 4A clock update.
func (d DateTime) String() string {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, 0, 0, time.UTC)
	base := outputFormat.FormatString(t)

	sign := "+"
	offset := d.OffsetMinutes
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s (%s%02d:%02d)", base, sign, offset/60, offset%60)
}
