package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chicago bounding box used to decide whether a coordinate pair is mappable.
const (
	minChicagoLat = 41.5
	maxChicagoLat = 42.5
	minChicagoLon = -88.0
	maxChicagoLon = -87.0
)

// PermitRecord is one dig ticket from the Chicago 811 dataset, in canonical
// form. The portal adapter coerces raw CSV/SODA fields into this shape;
// nothing downstream re-validates.
type PermitRecord struct {
	DigTicketNumber  string    `json:"dig_ticket_number"`
	PermitNumber     string    `json:"permit_number,omitempty"`
	RequestDate      time.Time `json:"request_date"`
	DigDate          time.Time `json:"dig_date"`
	ExpirationDate   time.Time `json:"expiration_date,omitempty"`
	IsEmergency      bool      `json:"is_emergency"`
	StreetName       string    `json:"street_name,omitempty"`
	StreetDirection  string    `json:"street_direction,omitempty"`
	StreetNumberFrom int       `json:"street_number_from,omitempty"`
	StreetNumberTo   int       `json:"street_number_to,omitempty"`
	StreetSuffix     string    `json:"street_suffix,omitempty"`
	DigLocation      string    `json:"dig_location,omitempty"`
	Latitude         float64   `json:"latitude,omitempty"`
	Longitude        float64   `json:"longitude,omitempty"`
	ContactFirstName string    `json:"contact_first_name,omitempty"`
	ContactLastName  string    `json:"contact_last_name,omitempty"`
}

// ContractorName returns the raw contractor name as recorded on the ticket.
// The dataset stores company names in the primary contact's last-name column.
func (p PermitRecord) ContractorName() string {
	return p.ContactLastName
}

// EventDate returns the calendar day of the dig date, the record's primary
// time axis.
func (p PermitRecord) EventDate() time.Time {
	return DateOf(p.DigDate)
}

// HasValidCoordinates reports whether the record's coordinates fall inside
// the Chicago bounding box. Zero-valued coordinates are portal placeholders
// for "no location" and are rejected.
func (p PermitRecord) HasValidCoordinates() bool {
	if p.Latitude == 0 || p.Longitude == 0 {
		return false
	}
	return p.Latitude >= minChicagoLat && p.Latitude <= maxChicagoLat &&
		p.Longitude >= minChicagoLon && p.Longitude <= maxChicagoLon
}

// Address assembles a postal address from the street components, suitable
// for geocoding. Returns "" when the record has no street name.
func (p PermitRecord) Address() string {
	if p.StreetName == "" {
		return ""
	}
	parts := make([]string, 0, 4)
	if p.StreetNumberFrom > 0 {
		parts = append(parts, fmt.Sprintf("%d", p.StreetNumberFrom))
	}
	if p.StreetDirection != "" {
		parts = append(parts, p.StreetDirection)
	}
	parts = append(parts, p.StreetName)
	if p.StreetSuffix != "" {
		parts = append(parts, p.StreetSuffix)
	}
	return strings.Join(parts, " ") + ", Chicago, IL"
}

// WorkType returns a human-readable description of the dig location field.
// The portal encodes multiple placements with underscores; empty values
// default to "General Construction".
func (p PermitRecord) WorkType() string {
	wt := strings.TrimSpace(p.DigLocation)
	if wt == "" {
		return "General Construction"
	}
	return strings.ReplaceAll(wt, "_", ",")
}

// ParseEmergencyFlag interprets the portal's free-text emergency column.
// "true", "t", "yes", "y", and "1" are emergencies, case-insensitive.
func ParseEmergencyFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}
