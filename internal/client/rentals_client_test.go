package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"maintenance-service/internal/config"
)

func testClient(baseURL string) *RentalsClient {
	return NewRentalsClient(&config.Config{
		Rentals: config.RentalsConfig{BaseURL: baseURL, APIToken: "test-token"},
	})
}

func TestGetCalendar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/properties/prop-1/calendar" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.URL.Query().Get("start_date"); got != "2024-06-01" {
			t.Errorf("unexpected start_date %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"listing_id": "prop-1",
				"start_date": "2024-06-01",
				"end_date":   "2024-07-31",
				"days": []map[string]interface{}{
					{"date": "2024-06-01", "status": map[string]interface{}{"available": true, "reason": ""}},
					{"date": "2024-06-02", "status": map[string]interface{}{"available": false, "reason": "RESERVED"}},
				},
			},
		})
	}))
	defer server.Close()

	calendar, err := testClient(server.URL).GetCalendar(context.Background(), "prop-1", "2024-06-01", "2024-07-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calendar.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(calendar.Days))
	}
	if calendar.Days[1].Status.Available {
		t.Error("expected second day to be unavailable")
	}
}

func TestListReservationsPaginatesAndFilters(t *testing.T) {
	const lastPage = 3
	var requested []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		requested = append(requested, page)

		// One reservation per page; page 2 belongs to another property and
		// must be filtered out.
		propID := "prop-1"
		if page == 2 {
			propID = "prop-other"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"check_in":   fmt.Sprintf("2024-06-%02dT15:00:00Z", page),
					"check_out":  fmt.Sprintf("2024-06-%02dT11:00:00Z", page+1),
					"properties": []map[string]string{{"id": propID}},
				},
			},
			"meta": map[string]int{"current_page": page, "last_page": lastPage},
		})
	}))
	defer server.Close()

	reservations, err := testClient(server.URL).ListReservations(context.Background(), "prop-1", "2024-06-01", "2024-07-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(requested) != lastPage {
		t.Errorf("expected %d page requests, got %v", lastPage, requested)
	}
	if len(reservations) != 2 {
		t.Fatalf("expected 2 reservations after filtering, got %d", len(reservations))
	}
	for _, r := range reservations {
		if !r.References("prop-1") {
			t.Errorf("reservation %v does not reference the property", r)
		}
	}
}

func TestListReservationsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance window"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListReservations(context.Background(), "prop-1", "2024-06-01", "2024-07-31")
	if err == nil {
		t.Fatal("expected error")
	}

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", upstreamErr.StatusCode)
	}
	if upstreamErr.Body != "maintenance window" {
		t.Errorf("expected body passed through, got %q", upstreamErr.Body)
	}
}

func TestReservationClockFields(t *testing.T) {
	r := Reservation{
		CheckIn:  "2024-06-10T15:30:00Z",
		CheckOut: "2024-06-14T11:45:00Z",
	}
	if got := r.CheckInDate(); got != "2024-06-10" {
		t.Errorf("CheckInDate: got %q", got)
	}
	if got := r.CheckOutDate(); got != "2024-06-14" {
		t.Errorf("CheckOutDate: got %q", got)
	}
	if got := r.CheckInHour(); got != 15 {
		t.Errorf("CheckInHour: got %d", got)
	}
	// Minutes are discarded, never rounded up.
	if got := r.CheckOutHour(); got != 11 {
		t.Errorf("CheckOutHour: got %d", got)
	}
}
