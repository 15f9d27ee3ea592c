package service

import (
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec != "0 30 8 * * *" {
		t.Fatalf("unexpected spec %q", spec)
	}
	for _, bad := range []string{"", "8", "24:00", "07:60", "aa:bb"} {
		if _, err := buildDailySpec(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestScheduleReports(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	if _, err := s.ScheduleReports("", 0, func() {}); err == nil {
		t.Fatalf("expected error without a schedule")
	}
	if _, err := s.ScheduleReports("25:00", time.Hour, func() {}); err == nil {
		t.Fatalf("daily time must win over interval and be validated")
	}
	if _, err := s.ScheduleReports("09:00", 0, func() {}); err != nil {
		t.Fatalf("daily schedule: %v", err)
	}
	if _, err := s.ScheduleReports("", 5*time.Hour, func() {}); err != nil {
		t.Fatalf("interval schedule: %v", err)
	}
}

func TestRemoveEntry(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	id, err := s.ScheduleInterval(time.Hour, func() {})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.cron.Entry(id).ID != id {
		t.Fatalf("entry %d not registered", id)
	}
	s.Remove(id)
	if s.cron.Entry(id).ID != 0 || !s.Next(id).IsZero() {
		t.Fatalf("removed entry still scheduled")
	}
}
