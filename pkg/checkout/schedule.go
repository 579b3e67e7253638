package checkout

import (
	"strings"
	"time"

	"github.com/example/bakery/pkg/models"
)

const dateLayout = "2006-01-02"

// ScheduleRules bundles what ValidateSchedule needs besides the settings.
type ScheduleRules struct {
	Location       *time.Location
	MaxAdvanceDays int
}

// ValidateSchedule checks a requested delivery date (YYYY-MM-DD in the
// store timezone) and slot. It returns the date at local midnight.
func ValidateSchedule(date, slot string, s *models.Settings, rules ScheduleRules, now time.Time) (time.Time, error) {
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, reject(CodeInvalidDate, "delivery_date", "delivery date must be YYYY-MM-DD")
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch {
	case day.Before(today):
		return time.Time{}, reject(CodeInvalidDate, "delivery_date", "delivery date is in the past")
	case day.After(today.AddDate(0, 0, rules.MaxAdvanceDays)):
		return time.Time{}, reject(CodeDateTooFar, "delivery_date", "delivery date can be at most %d days ahead", rules.MaxAdvanceDays)
	case day.Equal(today) && local.Hour() >= s.SameDayCutoffHour:
		return time.Time{}, reject(CodeSameDayCutoff, "delivery_date", "same-day orders close at %02d:00", s.SameDayCutoffHour)
	}

	slot = strings.TrimSpace(slot)
	for _, allowed := range s.DeliverySlots {
		if allowed == slot {
			return day, nil
		}
	}
	return time.Time{}, reject(CodeInvalidSlot, "delivery_slot", "delivery slot %q is not offered", slot)
}
