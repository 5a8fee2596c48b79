package models

import "fmt"

// Session is a fixed UTC clock-time band approximating a geographic
// trading session.
type Session string

const (
	SessionNone Session = "None"
	SessionUS   Session = "US"
	SessionEU   Session = "EU"
	SessionAPAC Session = "APAC"
)

type sessionBand struct {
	startHour, startMin int
	endHour, endMin     int
}

// Bands in UTC. APAC starts and ends at midnight-adjacent hours; any band
// whose start is after its end is treated as crossing midnight.
var sessionBands = map[Session]sessionBand{
	SessionUS:   {13, 30, 20, 0}, // 9:30 AM - 4:00 PM ET
	SessionEU:   {7, 0, 15, 30},  // 8:00 AM - 4:30 PM CET
	SessionAPAC: {0, 0, 7, 0},    // 9:00 AM - 4:00 PM JST
}

// ParseSession validates a session name. Empty input means no filtering.
func ParseSession(s string) (Session, error) {
	switch Session(s) {
	case SessionUS, SessionEU, SessionAPAC:
		return Session(s), nil
	case SessionNone, Session(""):
		return SessionNone, nil
	default:
		return SessionNone, fmt.Errorf("unknown session %q", s)
	}
}

// InSession reports whether a UTC clock time (hour, minute) falls inside
// the session band. Bands with start before end use a conjunctive test with
// the end minute inclusive; bands crossing midnight (start after end) use a
// disjunctive test across the day boundary. The asymmetry is deliberate:
// downstream aggregates depend on this exact rule.
func (s Session) InSession(hour, minute int) bool {
	band, ok := sessionBands[s]
	if !ok {
		return true
	}

	afterStart := hour > band.startHour || (hour == band.startHour && minute >= band.startMin)
	beforeEnd := hour < band.endHour || (hour == band.endHour && minute <= band.endMin)

	crossing := band.startHour > band.endHour ||
		(band.startHour == band.endHour && band.startMin > band.endMin)
	if crossing {
		return afterStart || beforeEnd
	}
	return afterStart && beforeEnd
}

// FilterBySession keeps only the points whose UTC clock time falls in the
// session band. SessionNone returns the series unchanged.
func FilterBySession(series PriceSeries, session Session) PriceSeries {
	if session == SessionNone {
		return series
	}
	if _, ok := sessionBands[session]; !ok {
		return series
	}
	out := make(PriceSeries, 0, len(series))
	for _, p := range series {
		t := p.Timestamp.UTC()
		if session.InSession(t.Hour(), t.Minute()) {
			out = append(out, p)
		}
	}
	return out
}
