package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"maintenance-service/internal/config"
)

// HorizonDays is the fixed booking horizon queried from the rentals API.
const HorizonDays = 60

// maxReservationPages bounds pagination against a misbehaving upstream.
const maxReservationPages = 100

type CalendarDay struct {
	Date    string    `json:"date"`
	MinStay int       `json:"min_stay"`
	Status  DayStatus `json:"status"`
	Price   *Price    `json:"price,omitempty"`
}

type DayStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Formatted string  `json:"formatted"`
}

type Calendar struct {
	ListingID string        `json:"listing_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Days      []CalendarDay `json:"days"`
}

type Reservation struct {
	CheckIn    string                `json:"check_in"`
	CheckOut   string                `json:"check_out"`
	Properties []ReservationProperty `json:"properties"`
}

type ReservationProperty struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// References reports whether the reservation belongs to the given property.
// The upstream filters reservations coarsely, so callers must re-check.
func (r Reservation) References(propertyID string) bool {
	for _, p := range r.Properties {
		if p.ID == propertyID {
			return true
		}
	}
	return false
}

// CheckInDate returns the ISO day component of the check-in timestamp.
func (r Reservation) CheckInDate() string {
	return dateComponent(r.CheckIn)
}

func (r Reservation) CheckOutDate() string {
	return dateComponent(r.CheckOut)
}

// CheckInHour returns the clock hour of the check-in timestamp as written,
// ignoring minutes. Timestamps carry the property's local clock time.
func (r Reservation) CheckInHour() int {
	return clockHour(r.CheckIn)
}

func (r Reservation) CheckOutHour() int {
	return clockHour(r.CheckOut)
}

// Times parses the check-in and check-out timestamps.
func (r Reservation) Times() (checkIn, checkOut time.Time, err error) {
	checkIn, err = parseTimestamp(r.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err = parseTimestamp(r.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}

func dateComponent(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

func clockHour(ts string) int {
	if len(ts) < 13 {
		return 0
	}
	h, err := strconv.Atoi(ts[11:13])
	if err != nil {
		return 0
	}
	return h
}

func parseTimestamp(ts string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, ts); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", ts)
}

type calendarResponse struct {
	Data Calendar `json:"data"`
}

type reservationsResponse struct {
	Data []Reservation `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	} `json:"meta"`
}

// UpstreamError is a non-2xx response from the rentals API, surfaced
// verbatim to the caller. The client never retries HTTP-level failures.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("rentals API returned status %d: %s", e.StatusCode, e.Body)
}

type RentalsClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewRentalsClient(cfg *config.Config) *RentalsClient {
	return &RentalsClient{
		baseURL:  cfg.Rentals.BaseURL,
		apiToken: cfg.Rentals.APIToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetCalendar fetches the per-day booking calendar for one property over
// [startDate, endDate], both "YYYY-MM-DD".
func (c *RentalsClient) GetCalendar(ctx context.Context, propertyID, startDate, endDate string) (*Calendar, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("rentals API URL is not configured")
	}

	u, err := url.Parse(fmt.Sprintf("%s/properties/%s/calendar", c.baseURL, propertyID))
	if err != nil {
		return nil, fmt.Errorf("invalid rentals API URL: %w", err)
	}
	q := u.Query()
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	u.RawQuery = q.Encode()

	var response calendarResponse
	if err := c.getJSON(ctx, u.String(), &response); err != nil {
		return nil, err
	}
	return &response.Data, nil
}

// ListReservations fetches every reservation page for the property over the
// range and concatenates them, then filters to the property defensively.
func (c *RentalsClient) ListReservations(ctx context.Context, propertyID, startDate, endDate string) ([]Reservation, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("rentals API URL is not configured")
	}

	var all []Reservation
	for page := 1; page <= maxReservationPages; page++ {
		u, err := url.Parse(c.baseURL + "/reservations")
		if err != nil {
			return nil, fmt.Errorf("invalid rentals API URL: %w", err)
		}
		q := u.Query()
		q.Set("properties[]", propertyID)
		q.Set("start_date", startDate)
		q.Set("end_date", endDate)
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", "100")
		q.Set("include", "properties")
		u.RawQuery = q.Encode()

		var response reservationsResponse
		if err := c.getJSON(ctx, u.String(), &response); err != nil {
			return nil, err
		}

		all = append(all, response.Data...)

		if response.Meta.CurrentPage >= response.Meta.LastPage {
			break
		}
	}

	filtered := make([]Reservation, 0, len(all))
	for _, r := range all {
		if r.References(propertyID) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (c *RentalsClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	newRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}
		return req, nil
	}

	req, err := newRequest()
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Retry only network errors, with backoff. HTTP errors surface as-is.
	var resp *http.Response
	var lastErr error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == maxRetries-1 {
			return fmt.Errorf("failed to execute request after %d attempts: %w", maxRetries, lastErr)
		}
		time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
		req, err = newRequest()
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}
	if resp == nil {
		return fmt.Errorf("failed to execute request: %w", lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// PropertySummary is one listing from the rentals API property index, used
// to sync the local property table.
type PropertySummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address struct {
		Display string `json:"display"`
	} `json:"address"`
}

type propertiesResponse struct {
	Data []PropertySummary `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	} `json:"meta"`
}

// ListProperties fetches every property page from the rentals API.
func (c *RentalsClient) ListProperties(ctx context.Context) ([]PropertySummary, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("rentals API URL is not configured")
	}

	var all []PropertySummary
	for page := 1; page <= maxReservationPages; page++ {
		u, err := url.Parse(c.baseURL + "/properties")
		if err != nil {
			return nil, fmt.Errorf("invalid rentals API URL: %w", err)
		}
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", "100")
		u.RawQuery = q.Encode()

		var response propertiesResponse
		if err := c.getJSON(ctx, u.String(), &response); err != nil {
			return nil, err
		}

		all = append(all, response.Data...)

		if response.Meta.CurrentPage >= response.Meta.LastPage {
			break
		}
	}
	return all, nil
}
