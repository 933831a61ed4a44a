package service

import (
	"azarean/rehab-app/internal/domain"
	"sort"
	"time"
)

// Streak is derived from diary dates on every read and never stored.
type Streak struct {
	Current int  `json:"current"`
	Best    int  `json:"best"`
	AtRisk  bool `json:"atRisk"`
}

// CalculateStreak computes the streak over diary entry dates (YYYY-MM-DD, any
// order, duplicates allowed) relative to today's calendar date.
//
// The current run starts at today if today has an entry, else at yesterday
// if yesterday has one, so a patient who has not logged yet today still sees
// their streak. AtRisk is true exactly when yesterday has an entry and today
// does not.
func CalculateStreak(dates []string, today time.Time) Streak {
	days := make(map[int64]bool, len(dates))
	for _, d := range dates {
		t, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			continue
		}
		days[dayNumber(t)] = true
	}

	t0 := dayNumber(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC))
	var s Streak

	start := t0
	if !days[t0] {
		start = t0 - 1
	}
	for d := start; days[d]; d-- {
		s.Current++
	}

	sorted := make([]int64, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1]-d == 1 {
			run++
		} else {
			run = 1
		}
		if run > s.Best {
			s.Best = run
		}
	}
	if s.Current > s.Best {
		s.Best = s.Current
	}

	s.AtRisk = days[t0-1] && !days[t0]
	return s
}

// dayNumber counts days since the Unix epoch for a UTC midnight.
func dayNumber(t time.Time) int64 {
	return t.Unix() / 86400
}
