// Package domain models Chicago 811 dig ticket data.
//
// # Data Source
//
// Dig tickets come from the City of Chicago open data portal. The portal
// exposes the dataset two ways: a bulk CSV export used for backfills and a
// paginated SODA JSON API used for the daily incremental fetch. The two
// surfaces use different column names for the same fields:
//
//	CSV header            SODA field            canonical field
//	DIG_TICKET#           dig_ticket_           DigTicketNumber
//	PERMIT#               permit_               PermitNumber
//	REQUESTDATE           requestdate           RequestDate
//	DIGDATE               digdate               DigDate
//	EXPIRATIONDATE        expirationdate        ExpirationDate
//	EMERGENCY             emergency             IsEmergency
//	STNAME                stname                StreetName
//	PRIMARYCONTACTLAST    primarycontactlast    ContactLastName
//
// The portal adapter owns that mapping; everything past the adapter boundary
// works with the canonical PermitRecord.
//
// # Conventions
//
// The emergency flag arrives as free text. Values "true", "t", "yes", "y",
// and "1" (case-insensitive) are emergencies; anything else is a regular
// ticket.
//
// Coordinates may be missing or junk. Records with coordinates outside the
// city bounding box (lat 41.5-42.5, lon -88..-87) or at exactly zero are
// treated as present-but-unmapped, never as errors. See
// [PermitRecord.HasValidCoordinates].
//
// DigDate is the primary time axis: the day the work is scheduled to break
// ground. RequestDate and ExpirationDate bound the permit but are only used
// by the renderer.
//
// # Contractor Names
//
// Contractor names are free text entered by hand, so the same company shows
// up under many spellings ("COM ED", "COMED", "Com-Ed"). [NormalizeContractor]
// folds trivial variation (whitespace, case, stray asterisks) and an
// operator-maintained alias table maps known variants to a canonical name.
// The alias table is configuration data, loaded at startup, never hard-coded.
package domain
