package candle

import "time"

// Exchange session, local time.
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 15
	SessionCloseHour   = 15
	SessionCloseMinute = 30
)

// DefaultExchangeLocation is used when no exchange time zone is configured.
const DefaultExchangeLocation = "Asia/Kolkata"

// DateKey identifies the calendar day of t in its own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SessionOpen returns 09:15 on the calendar day of t.
func SessionOpen(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), SessionOpenHour, SessionOpenMinute, 0, 0, t.Location())
}

// SessionClose returns 15:30 on the calendar day of t.
func SessionClose(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), SessionCloseHour, SessionCloseMinute, 0, 0, t.Location())
}

// InSession reports whether open <= t < close.
func InSession(t time.Time) bool {
	return !t.Before(SessionOpen(t)) && t.Before(SessionClose(t))
}

// InLocation returns a copy of candles with timestamps expressed in loc.
func InLocation(candles []Candle, loc *time.Location) []Candle {
	out := make([]Candle, len(candles))
	for i, c := range candles {
		c.Timestamp = c.Timestamp.In(loc)
		out[i] = c
	}
	return out
}

// LoadExchangeLocation resolves an IANA zone name, falling back to the default exchange zone.
func LoadExchangeLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultExchangeLocation
	}
	return time.LoadLocation(name)
}
