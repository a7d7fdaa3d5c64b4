package domain

import "time"

// VendorRecord is one vendor object exactly as returned by the listing API.
// The upstream payload shape drifts over time, so it is kept as a generic
// JSON document until the transformer maps it to a VendorRow.
type VendorRecord map[string]any

// VendorRow is the fixed columnar schema for one vendor snapshot.
// VendorID, Name, CityID and FetchedAt are always set; everything else
// degrades to null when the upstream payload is missing or malformed.
type VendorRow struct {
	VendorID    string    `parquet:"vendor_id" json:"vendor_id"`
	Name        string    `parquet:"name" json:"name"`
	CityID      string    `parquet:"city_id" json:"city_id"`
	Rating      *float64  `parquet:"rating,optional" json:"rating,omitempty"`
	DeliveryFee *float64  `parquet:"delivery_fee,optional" json:"delivery_fee,omitempty"`
	Categories  []string  `parquet:"categories,list,optional" json:"categories,omitempty"`
	Latitude    *float64  `parquet:"latitude,optional" json:"latitude,omitempty"`
	Longitude   *float64  `parquet:"longitude,optional" json:"longitude,omitempty"`
	FetchedAt   time.Time `parquet:"fetched_at" json:"fetched_at"`
}
