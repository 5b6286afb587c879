package util

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Five-field specs (minute, hour, day of month, month, weekday), the format
// the asynq scheduler accepts for the deadline scan.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextCronTime returns the first run of spec after from, evaluating the
// spec in loc the way the scheduler does. A nil loc means UTC.
func NextCronTime(spec string, from time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule.Next(from.In(loc)), nil
}

func ValidateCronExpr(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}
