package fee

import "time"

// SessionStartMonth is the first month of the academic session.
const SessionStartMonth = time.April

// AcademicSession returns the 12 months of the session `now` falls in, April through March.
func AcademicSession(now time.Time) []MonthRef {
	startYear := now.Year()
	if now.Month() < SessionStartMonth {
		startYear--
	}

	first := int(SessionStartMonth) - 1
	months := make([]MonthRef, 0, 12)
	for i := 0; i < 12; i++ {
		months = append(months, MonthRef{
			Year:  startYear + (first+i)/12,
			Month: (first + i) % 12,
		})
	}
	return months
}

// InSession reports whether m is one of the months of the session `now` falls in.
func InSession(m MonthRef, now time.Time) bool {
	for _, sm := range AcademicSession(now) {
		if sm == m {
			return true
		}
	}
	return false
}
