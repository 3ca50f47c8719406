package service

import (
	"context"
	"time"

	"maintenance-service/internal/availability"
	"maintenance-service/internal/client"
)

// RentalsAPI is the slice of the rentals client the services consume.
type RentalsAPI interface {
	GetCalendar(ctx context.Context, propertyID, startDate, endDate string) (*client.Calendar, error)
	ListReservations(ctx context.Context, propertyID, startDate, endDate string) ([]client.Reservation, error)
	ListProperties(ctx context.Context) ([]client.PropertySummary, error)
}

// AvailabilityResult is one consistent snapshot of a property's calendar,
// reservations and the free windows computed from them. Ephemeral: never
// persisted, recomputed on each request.
type AvailabilityResult struct {
	Calendar     *client.Calendar     `json:"calendar"`
	Reservations []client.Reservation `json:"reservations"`
	Windows      []availability.Window `json:"availability"`
}

type AvailabilityService struct {
	rentals RentalsAPI
}

func NewAvailabilityService(rentals RentalsAPI) *AvailabilityService {
	return &AvailabilityService{rentals: rentals}
}

// GetAvailability fetches calendar and reservations concurrently over the
// fixed horizon (today .. today+60d) and computes the free windows. Either
// fetch failing fails the whole call; nothing is mutated on failure.
func (s *AvailabilityService) GetAvailability(ctx context.Context, propertyExternalID string) (*AvailabilityResult, error) {
	today := time.Now().UTC()
	startDate := today.Format("2006-01-02")
	endDate := today.AddDate(0, 0, client.HorizonDays).Format("2006-01-02")

	var (
		calendar     *client.Calendar
		reservations []client.Reservation
		calendarErr  error
		reservErr    error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		reservations, reservErr = s.rentals.ListReservations(ctx, propertyExternalID, startDate, endDate)
	}()
	calendar, calendarErr = s.rentals.GetCalendar(ctx, propertyExternalID, startDate, endDate)
	<-done

	if calendarErr != nil {
		return nil, calendarErr
	}
	if reservErr != nil {
		return nil, reservErr
	}

	return &AvailabilityResult{
		Calendar:     calendar,
		Reservations: reservations,
		Windows:      availability.Compute(calendar.Days, reservations, propertyExternalID),
	}, nil
}

// WindowFor returns the free window for one date, if any.
func (r *AvailabilityResult) WindowFor(date string) (availability.Window, bool) {
	for _, w := range r.Windows {
		if w.Date == date {
			return w, true
		}
	}
	return availability.Window{}, false
}
