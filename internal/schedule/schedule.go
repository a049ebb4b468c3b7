// Package schedule describes when an external scheduler should invoke a
// backup run. All times are UTC, matching artifact names.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

type Period string

const (
	Daily   Period = "day"
	Weekly  Period = "week"
	Monthly Period = "month"
)

const maxTimes = 5

// Slot tables per run count. Daily offsets are added to Spec.Hour.
var (
	dailyOffsets = [][]int{{0}, {0, 12}, {0, 8, 16}, {0, 6, 12, 18}, {0, 4, 10, 16, 20}}
	weekDays     = [][]time.Weekday{
		{time.Monday},
		{time.Monday, time.Thursday},
		{time.Monday, time.Wednesday, time.Friday},
		{time.Monday, time.Tuesday, time.Thursday, time.Friday},
		{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
	monthDays = [][]int{{1}, {1, 15}, {1, 10, 20}, {1, 8, 15, 22}, {1, 7, 14, 21, 28}}
)

// Spec is Times runs per Period, the first at Hour.
type Spec struct {
	Period        Period
	Times         int
	Hour          int
	JitterMinutes int
}

func (s Spec) Validate() error {
	switch s.Period {
	case "", Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("unknown schedule period %q (use day, week or month)", s.Period)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("schedule hour %d out of range 0-23", s.Hour)
	}
	if s.Times < 0 || s.Times > maxTimes {
		return fmt.Errorf("schedule times %d out of range 1-%d", s.Times, maxTimes)
	}
	return nil
}

func (s Spec) normalized() Spec {
	if s.Period == "" {
		s.Period = Daily
	}
	if s.Times < 1 {
		s.Times = 1
	}
	if s.Times > maxTimes {
		s.Times = maxTimes
	}
	if s.JitterMinutes < 0 {
		s.JitterMinutes = 0
	}
	return s
}

// Hours returns the run hours of a run day, ascending.
func (s Spec) Hours() []int {
	s = s.normalized()
	if s.Period != Daily {
		return []int{s.Hour}
	}
	var hours []int
	for _, off := range dailyOffsets[s.Times-1] {
		hours = append(hours, (s.Hour+off)%24)
	}
	sort.Ints(hours)
	return hours
}

func (s Spec) runsOn(day time.Time) bool {
	s = s.normalized()
	switch s.Period {
	case Weekly:
		for _, wd := range weekDays[s.Times-1] {
			if day.Weekday() == wd {
				return true
			}
		}
		return false
	case Monthly:
		for _, d := range monthDays[s.Times-1] {
			if day.Day() == d {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// OnCalendar returns systemd calendar expressions for s.
func OnCalendar(s Spec) []string {
	s = s.normalized()
	var out []string
	switch s.Period {
	case Weekly:
		for _, wd := range weekDays[s.Times-1] {
			out = append(out, fmt.Sprintf("%s *-*-* %02d:00:00 UTC", wd.String()[:3], s.Hour))
		}
	case Monthly:
		for _, d := range monthDays[s.Times-1] {
			out = append(out, fmt.Sprintf("*-*-%02d %02d:00:00 UTC", d, s.Hour))
		}
	default:
		for _, h := range s.Hours() {
			out = append(out, fmt.Sprintf("*-*-* %02d:00:00 UTC", h))
		}
	}
	return out
}

// NextRun returns the first scheduled time strictly after now, before jitter.
func NextRun(s Spec, now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	hours := s.Hours()
	for i := 0; i <= 31; i++ {
		d := day.AddDate(0, 0, i)
		if !s.runsOn(d) {
			continue
		}
		for _, h := range hours {
			if cand := d.Add(time.Duration(h) * time.Hour); cand.After(now) {
				return cand
			}
		}
	}
	return time.Time{}
}

// Describe is a short label such as "daily 2x".
func Describe(s Spec) string {
	s = s.normalized()
	label := map[Period]string{Daily: "daily", Weekly: "weekly", Monthly: "monthly"}[s.Period]
	return fmt.Sprintf("%s %dx", label, s.Times)
}
