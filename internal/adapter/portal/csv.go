package portal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// csvColumns maps the CSV export's header names onto sodaRecord fields, so
// both surfaces share one coercion path.
var csvColumns = map[string]func(*sodaRecord, string){
	"DIG_TICKET#":         func(r *sodaRecord, v string) { r.DigTicketNumber = v },
	"PERMIT#":             func(r *sodaRecord, v string) { r.PermitNumber = v },
	"REQUESTDATE":         func(r *sodaRecord, v string) { r.RequestDate = v },
	"DIGDATE":             func(r *sodaRecord, v string) { r.DigDate = v },
	"EXPIRATIONDATE":      func(r *sodaRecord, v string) { r.ExpirationDate = v },
	"EMERGENCY":           func(r *sodaRecord, v string) { r.Emergency = v },
	"STNAME":              func(r *sodaRecord, v string) { r.StreetName = v },
	"DIRECTION":           func(r *sodaRecord, v string) { r.StreetDirection = v },
	"STNOFROM":            func(r *sodaRecord, v string) { r.StreetNumberFrom = v },
	"STNOTO":              func(r *sodaRecord, v string) { r.StreetNumberTo = v },
	"SUFFIX":              func(r *sodaRecord, v string) { r.StreetSuffix = v },
	"PLACEMENT":           func(r *sodaRecord, v string) { r.DigLocation = v },
	"LATITUDE":            func(r *sodaRecord, v string) { r.Latitude = v },
	"LONGITUDE":           func(r *sodaRecord, v string) { r.Longitude = v },
	"PRIMARYCONTACTFIRST": func(r *sodaRecord, v string) { r.ContactFirstName = v },
	"PRIMARYCONTACTLAST":  func(r *sodaRecord, v string) { r.ContactLastName = v },
}

// FetchFull streams the complete dataset from the CSV export. The export is
// hundreds of megabytes, so rows are decoded one at a time rather than
// buffered.
func (c *Client) FetchFull(ctx context.Context) ([]domain.PermitRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.csvClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal CSV error: status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	setters := make([]func(*sodaRecord, string), len(header))
	for i, name := range header {
		setters[i] = csvColumns[name]
	}

	var records []domain.PermitRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}

		var raw sodaRecord
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&raw, v)
			}
		}
		rec, err := raw.toRecord()
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	c.logger.Info("downloaded full dataset", "count", len(records), "dropped", dropped)
	return records, nil
}
