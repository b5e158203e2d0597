// Package portal fetches dig tickets from the Chicago open data portal. The
// SODA JSON API serves the daily incremental pull; the bulk CSV export serves
// full-dataset backfills.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// sodaLimit caps a single SODA query. The daily window is a few thousand
// tickets at most, so one page suffices.
const sodaLimit = 50000

// Client fetches and coerces dig tickets from the data portal.
type Client struct {
	sodaURL    string
	csvURL     string
	appToken   string
	retries    uint64
	httpClient *http.Client
	// csvClient has no timeout: the full export takes longer than any sane
	// per-request limit, so the caller's context bounds it instead.
	csvClient *http.Client
	logger    *slog.Logger
}

// NewClient creates a data portal client. retries is the number of times a
// failed fetch is retried with exponential backoff before giving up.
func NewClient(sodaURL, csvURL, appToken string, timeout time.Duration, retries int, logger *slog.Logger) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		sodaURL:  sodaURL,
		csvURL:   csvURL,
		appToken: appToken,
		retries:  uint64(retries),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		csvClient: &http.Client{},
		logger:    logger,
	}
}

// FetchRecent returns tickets requested after since, via the SODA API.
// Malformed rows are logged and dropped rather than failing the batch.
func (c *Client) FetchRecent(ctx context.Context, since time.Time) ([]domain.PermitRecord, error) {
	params := url.Values{
		"$order": {"requestdate DESC"},
		"$limit": {strconv.Itoa(sodaLimit)},
		"$where": {fmt.Sprintf("requestdate > '%s'", since.Format("2006-01-02"))},
	}
	fullURL := c.sodaURL + "?" + params.Encode()

	var rows []sodaRecord
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.appToken != "" {
			req.Header.Set("X-App-Token", c.appToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("portal request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("portal API error: status %d: %s", resp.StatusCode, body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		rows = rows[:0]
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("portal fetch failed, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}

	records := make([]domain.PermitRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			c.logger.Warn("dropping malformed ticket", "ticket", row.DigTicketNumber, "error", err)
			continue
		}
		records = append(records, rec)
	}
	c.logger.Info("fetched recent tickets", "since", since.Format("2006-01-02"), "count", len(records))
	return records, nil
}

// sodaRecord mirrors one SODA API row. Every field arrives as a string; the
// coercion to PermitRecord happens in toRecord.
type sodaRecord struct {
	DigTicketNumber  string `json:"dig_ticket_"`
	PermitNumber     string `json:"permit_"`
	RequestDate      string `json:"requestdate"`
	DigDate          string `json:"digdate"`
	ExpirationDate   string `json:"expirationdate"`
	Emergency        string `json:"emergency"`
	StreetName       string `json:"stname"`
	StreetDirection  string `json:"direction"`
	StreetNumberFrom string `json:"stnofrom"`
	StreetNumberTo   string `json:"stnoto"`
	StreetSuffix     string `json:"suffix"`
	DigLocation      string `json:"placement"`
	Latitude         string `json:"latitude"`
	Longitude        string `json:"longitude"`
	ContactFirstName string `json:"primarycontactfirst"`
	ContactLastName  string `json:"primarycontactlast"`
}

func (r sodaRecord) toRecord() (domain.PermitRecord, error) {
	if r.DigTicketNumber == "" {
		return domain.PermitRecord{}, fmt.Errorf("missing dig ticket number")
	}
	digDate, err := parseTimestamp(r.DigDate)
	if err != nil || digDate.IsZero() {
		return domain.PermitRecord{}, fmt.Errorf("bad dig date %q", r.DigDate)
	}
	requestDate, _ := parseTimestamp(r.RequestDate)
	expirationDate, _ := parseTimestamp(r.ExpirationDate)

	return domain.PermitRecord{
		DigTicketNumber:  strings.TrimSpace(r.DigTicketNumber),
		PermitNumber:     strings.TrimSpace(r.PermitNumber),
		RequestDate:      requestDate,
		DigDate:          digDate,
		ExpirationDate:   expirationDate,
		IsEmergency:      domain.ParseEmergencyFlag(r.Emergency),
		StreetName:       strings.TrimSpace(r.StreetName),
		StreetDirection:  strings.TrimSpace(r.StreetDirection),
		StreetNumberFrom: parseIntField(r.StreetNumberFrom),
		StreetNumberTo:   parseIntField(r.StreetNumberTo),
		StreetSuffix:     strings.TrimSpace(r.StreetSuffix),
		DigLocation:      strings.TrimSpace(r.DigLocation),
		Latitude:         parseFloatField(r.Latitude),
		Longitude:        parseFloatField(r.Longitude),
		ContactFirstName: strings.TrimSpace(r.ContactFirstName),
		ContactLastName:  strings.TrimSpace(r.ContactLastName),
	}, nil
}

// SODA floating timestamps and the CSV export use different layouts.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006 03:04:05 PM",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseIntField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// Some rows carry "1060.0" style values.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseFloatField(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
