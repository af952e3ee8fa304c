package contact

import "time"

// DefaultBirthdayWindowDays is the number of calendar days, starting
// today, checked by the upcoming-birthday query.
const DefaultBirthdayWindowDays = 8

// FilterUpcomingBirthdays returns the contacts whose birthday (month, day)
// falls on any of the windowDays calendar dates starting at today,
// inclusive. Comparing per offset day rather than by date arithmetic makes
// the window wrap the year boundary for free: a Jan 2 birthday matches on
// Dec 30 because day 3 of the window lands on Jan 2 of the next year.
//
// A Feb 29 birthday only matches in windows that contain an actual Feb 29.
func FilterUpcomingBirthdays(contacts []Contact, today time.Time, windowDays int) []Contact {
	upcoming := make([]Contact, 0)
	for _, c := range contacts {
		month, day := c.Birthday.Month(), c.Birthday.Day()

		for i := 0; i < windowDays; i++ {
			check := today.AddDate(0, 0, i)
			if check.Month() == month && check.Day() == day {
				upcoming = append(upcoming, c)
				break
			}
		}
	}
	return upcoming
}
