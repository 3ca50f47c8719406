// Package availability computes free maintenance windows for a property from
// its booking calendar and reservation list. All functions are pure; fetch
// failures are handled by the caller before this package is invoked.
package availability

import (
	"fmt"
	"time"

	"maintenance-service/internal/client"
)

// Window is one day's free maintenance hours, whole-hour slots ascending.
type Window struct {
	Date           string   `json:"date"`
	AvailableHours []string `json:"availableHours"`
}

// DayStartHour is the earliest hour maintenance may begin on a day whose
// only booking activity is a check-in: the morning is reserved for
// arrival prep from 06:00.
const DayStartHour = 6

// Compute returns one Window per calendar day that has at least one free
// hour, preserving calendar order. Reservations are re-filtered to the
// property because the upstream API filters coarsely.
func Compute(days []client.CalendarDay, reservations []client.Reservation, propertyID string) []Window {
	relevant := make([]client.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.References(propertyID) {
			relevant = append(relevant, r)
		}
	}

	var windows []Window
	for _, day := range days {
		hours := availableHours(day.Date, relevant)
		if len(hours) > 0 {
			windows = append(windows, Window{Date: day.Date, AvailableHours: hours})
		}
	}
	return windows
}

// availableHours evaluates a single day against the reservation list.
//
// A reservation strictly spanning the day blocks it entirely. Otherwise the
// free range is bounded below by the latest check-out hour and above by the
// earliest check-in hour. Sub-hour precision is discarded: a check-out at
// 11:30 frees the property from hour 11, which errs on the side of the
// guest's stay, never the maintenance window.
func availableHours(date string, reservations []client.Reservation) []string {
	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil
	}

	var checkOuts, checkIns []client.Reservation
	for _, r := range reservations {
		checkIn, checkOut, err := r.Times()
		if err != nil {
			continue
		}
		if checkIn.Before(dayStart) && checkOut.After(dayStart) && r.CheckOutDate() != date {
			// Ongoing stay covering the whole day.
			return nil
		}
		if r.CheckOutDate() == date {
			checkOuts = append(checkOuts, r)
		}
		if r.CheckInDate() == date {
			checkIns = append(checkIns, r)
		}
	}

	switch {
	case len(checkOuts) > 0 && len(checkIns) > 0:
		latestOut := latestCheckOutHour(checkOuts)
		earliestIn := earliestCheckInHour(checkIns)
		if latestOut >= earliestIn {
			return nil
		}
		return HourSlots(latestOut, earliestIn)
	case len(checkOuts) > 0:
		return HourSlots(latestCheckOutHour(checkOuts), 24)
	case len(checkIns) > 0:
		return HourSlots(DayStartHour, earliestCheckInHour(checkIns))
	default:
		return HourSlots(0, 24)
	}
}

func latestCheckOutHour(reservations []client.Reservation) int {
	latest := 0
	for _, r := range reservations {
		if h := r.CheckOutHour(); h > latest {
			latest = h
		}
	}
	return latest
}

func earliestCheckInHour(reservations []client.Reservation) int {
	earliest := 24
	for _, r := range reservations {
		if h := r.CheckInHour(); h < earliest {
			earliest = h
		}
	}
	return earliest
}

// HourSlots materializes the half-open hour range [start, end) as "HH:00"
// strings. Empty when start >= end.
func HourSlots(start, end int) []string {
	if start >= end {
		return nil
	}
	slots := make([]string, 0, end-start)
	for h := start; h < end; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}
