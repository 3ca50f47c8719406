package availability

import (
	"reflect"
	"testing"

	"maintenance-service/internal/client"
)

const propertyID = "prop-1"

func day(date string) client.CalendarDay {
	return client.CalendarDay{Date: date, Status: client.DayStatus{Available: true}}
}

func reservation(checkIn, checkOut string, props ...string) client.Reservation {
	if len(props) == 0 {
		props = []string{propertyID}
	}
	r := client.Reservation{CheckIn: checkIn, CheckOut: checkOut}
	for _, p := range props {
		r.Properties = append(r.Properties, client.ReservationProperty{ID: p})
	}
	return r
}

func TestComputeSingleDays(t *testing.T) {
	tests := []struct {
		name         string
		reservations []client.Reservation
		wantHours    []string
	}{
		{
			name: "ongoing reservation blocks the whole day",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-12T11:00:00Z"),
			},
			wantHours: nil,
		},
		{
			name: "checkout only frees the rest of the day",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T11:00:00Z"),
			},
			wantHours: HourSlots(11, 24),
		},
		{
			name: "checkin only frees the morning from six",
			reservations: []client.Reservation{
				reservation("2024-06-10T15:00:00Z", "2024-06-14T11:00:00Z"),
			},
			wantHours: HourSlots(6, 15),
		},
		{
			name: "checkin at six leaves nothing",
			reservations: []client.Reservation{
				reservation("2024-06-10T06:00:00Z", "2024-06-14T11:00:00Z"),
			},
			wantHours: nil,
		},
		{
			name: "checkout before checkin opens a window between stays",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T10:00:00Z"),
				reservation("2024-06-10T15:00:00Z", "2024-06-14T11:00:00Z"),
			},
			wantHours: HourSlots(10, 15),
		},
		{
			name: "checkout after checkin closes the day",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T16:00:00Z"),
				reservation("2024-06-10T15:00:00Z", "2024-06-14T11:00:00Z"),
			},
			wantHours: nil,
		},
		{
			name: "checkout equal to checkin closes the day",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T15:00:00Z"),
				reservation("2024-06-10T15:00:00Z", "2024-06-14T11:00:00Z"),
			},
			wantHours: nil,
		},
		{
			name:         "no booking activity frees the entire day",
			reservations: nil,
			wantHours:    HourSlots(0, 24),
		},
		{
			name: "sub-hour checkout truncates down in the guest's favor",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T11:30:00Z"),
			},
			wantHours: HourSlots(11, 24),
		},
		{
			name: "latest checkout and earliest checkin bound the window",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-10T09:00:00Z"),
				reservation("2024-06-07T15:00:00Z", "2024-06-10T12:00:00Z"),
				reservation("2024-06-10T18:00:00Z", "2024-06-12T11:00:00Z"),
				reservation("2024-06-10T16:00:00Z", "2024-06-13T11:00:00Z"),
			},
			wantHours: HourSlots(12, 16),
		},
		{
			name: "reservations for other properties are ignored",
			reservations: []client.Reservation{
				reservation("2024-06-08T15:00:00Z", "2024-06-12T11:00:00Z", "prop-other"),
			},
			wantHours: HourSlots(0, 24),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := Compute([]client.CalendarDay{day("2024-06-10")}, tt.reservations, propertyID)

			if tt.wantHours == nil {
				if len(windows) != 0 {
					t.Fatalf("expected no window, got %v", windows)
				}
				return
			}

			if len(windows) != 1 {
				t.Fatalf("expected one window, got %d", len(windows))
			}
			if windows[0].Date != "2024-06-10" {
				t.Errorf("expected date 2024-06-10, got %s", windows[0].Date)
			}
			if !reflect.DeepEqual(windows[0].AvailableHours, tt.wantHours) {
				t.Errorf("expected hours %v, got %v", tt.wantHours, windows[0].AvailableHours)
			}
		})
	}
}

func TestComputeSpecExamples(t *testing.T) {
	// A checkout at 11:00 with no checkin frees 11:00 through 23:00.
	windows := Compute(
		[]client.CalendarDay{day("2024-06-10")},
		[]client.Reservation{reservation("2024-06-05T15:00:00Z", "2024-06-10T11:00:00Z")},
		propertyID,
	)
	if len(windows) != 1 {
		t.Fatalf("expected one window, got %d", len(windows))
	}
	hours := windows[0].AvailableHours
	if hours[0] != "11:00" || hours[len(hours)-1] != "23:00" || len(hours) != 13 {
		t.Errorf("expected 11:00..23:00, got %v", hours)
	}

	// Checkout at 10:00 and checkin at 15:00 on the same day free 10:00..14:00.
	windows = Compute(
		[]client.CalendarDay{day("2024-06-10")},
		[]client.Reservation{
			reservation("2024-06-05T15:00:00Z", "2024-06-10T10:00:00Z"),
			reservation("2024-06-10T15:00:00Z", "2024-06-14T11:00:00Z"),
		},
		propertyID,
	)
	if len(windows) != 1 {
		t.Fatalf("expected one window, got %d", len(windows))
	}
	want := []string{"10:00", "11:00", "12:00", "13:00", "14:00"}
	if !reflect.DeepEqual(windows[0].AvailableHours, want) {
		t.Errorf("expected %v, got %v", want, windows[0].AvailableHours)
	}
}

func TestComputePreservesCalendarOrder(t *testing.T) {
	days := []client.CalendarDay{
		day("2024-06-09"),
		day("2024-06-10"),
		day("2024-06-11"),
		day("2024-06-12"),
	}
	// Stay covering the 10th and 11th: checkin on the 9th evening, checkout
	// on the 12th morning.
	reservations := []client.Reservation{
		reservation("2024-06-09T16:00:00Z", "2024-06-12T10:00:00Z"),
	}

	windows := Compute(days, reservations, propertyID)

	wantDates := []string{"2024-06-09", "2024-06-12"}
	if len(windows) != len(wantDates) {
		t.Fatalf("expected %d windows, got %d: %v", len(wantDates), len(windows), windows)
	}
	for i, want := range wantDates {
		if windows[i].Date != want {
			t.Errorf("window %d: expected date %s, got %s", i, want, windows[i].Date)
		}
	}

	// Checkin day keeps the six-to-checkin morning window, checkout day the
	// rest of the day.
	if !reflect.DeepEqual(windows[0].AvailableHours, HourSlots(6, 16)) {
		t.Errorf("checkin day: expected %v, got %v", HourSlots(6, 16), windows[0].AvailableHours)
	}
	if !reflect.DeepEqual(windows[1].AvailableHours, HourSlots(10, 24)) {
		t.Errorf("checkout day: expected %v, got %v", HourSlots(10, 24), windows[1].AvailableHours)
	}
}

func TestHourSlots(t *testing.T) {
	if got := HourSlots(9, 9); got != nil {
		t.Errorf("expected empty range, got %v", got)
	}
	if got := HourSlots(10, 9); got != nil {
		t.Errorf("expected empty range for inverted bounds, got %v", got)
	}
	got := HourSlots(8, 11)
	want := []string{"08:00", "09:00", "10:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
