package model

import "github.com/paulmach/orb"

// Coordinate is a WGS84 position. Equality is exact-value.
type Coordinate struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

// Point converts to an orb.Point, which is [lng, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// CoordinateFromPoint is the inverse of Coordinate.Point.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// City is a static sweep target.
type City struct {
	Name   string     `json:"name" mapstructure:"name"`
	Center Coordinate `json:"center" mapstructure:"center"`
}

// SearchHit is a raw result from the place-search service.
type SearchHit struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
}

// OperatingStatus mirrors the upstream business_status field.
type OperatingStatus string

const (
	StatusOperational       OperatingStatus = "OPERATIONAL"
	StatusClosedTemporarily OperatingStatus = "CLOSED_TEMPORARILY"
	StatusClosedPermanently OperatingStatus = "CLOSED_PERMANENTLY"
	StatusUnknown           OperatingStatus = "UNKNOWN"
)

// ParseOperatingStatus maps an upstream value to a status; anything unrecognised is UNKNOWN.
func ParseOperatingStatus(s string) OperatingStatus {
	switch OperatingStatus(s) {
	case StatusOperational, StatusClosedTemporarily, StatusClosedPermanently:
		return OperatingStatus(s)
	}
	return StatusUnknown
}

// EnrichedRecord is a SearchHit with its detail attributes. Empty strings and
// nil pointers mean the upstream omitted the field.
type EnrichedRecord struct {
	SearchHit
	Website     string          `json:"website,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	ReviewCount *int            `json:"review_count,omitempty"`
	Status      OperatingStatus `json:"status"`
}

// OperatingStatus returns Status, treating the zero value as UNKNOWN.
func (r EnrichedRecord) OperatingStatus() OperatingStatus {
	if r.Status == "" {
		return StatusUnknown
	}
	return r.Status
}

// Platform is the fixed source tag written on every lead.
const Platform = "Google Maps"

// Lead is the row forwarded to the record store.
type Lead struct {
	LeadName          string `json:"lead_name"`
	ContactProfileURL string `json:"contact_profile_url"`
	Platform          string `json:"platform"`
	BusinessName      string `json:"business_name"`
	BusinessURL       string `json:"business_url"`
	CityState         string `json:"city_state"`
	BusinessNumber    string `json:"business_number"`
	WebsiteQuality    string `json:"website_quality"`
}

// ContactProfileURL builds the Maps URL for a place id.
func ContactProfileURL(entityID string) string {
	if entityID == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id:" + entityID
}

// NewLead selects the record-store fields from an admitted record.
func NewLead(r EnrichedRecord, city City, quality string) Lead {
	return Lead{
		LeadName:          r.Name,
		ContactProfileURL: ContactProfileURL(r.EntityID),
		Platform:          Platform,
		BusinessName:      r.Name,
		BusinessURL:       r.Website,
		CityState:         city.Name,
		BusinessNumber:    r.Phone,
		WebsiteQuality:    quality,
	}
}

// SeenEntry is one row of the seen log.
type SeenEntry struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Date     string `json:"date"` // ISO yyyy-mm-dd
	EntityID string `json:"entity_id"`
}
