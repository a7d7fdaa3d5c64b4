// Package transform maps raw vendor JSON into the fixed columnar schema.
// All functions are pure; failures are reported as typed errors and a
// malformed payload can never panic the pipeline.
package transform

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/xde719/pandaflow/internal/domain"
)

// Vendor maps one raw vendor record to a VendorRow. The vendor id and name
// are required; a record missing either is dropped by the caller. Optional
// fields degrade to null on any shape mismatch.
func Vendor(raw domain.VendorRecord, cityID string, fetchedAt time.Time) (domain.VendorRow, error) {
	id, ok := stringField(raw, "code", "id")
	if !ok {
		return domain.VendorRow{}, &domain.TransformError{Kind: domain.TransformMissingRequiredField, Field: "code"}
	}
	name, ok := stringField(raw, "name")
	if !ok {
		return domain.VendorRow{}, &domain.TransformError{Kind: domain.TransformMissingRequiredField, Field: "name"}
	}

	row := domain.VendorRow{
		VendorID:    id,
		Name:        name,
		CityID:      cityID,
		Rating:      floatField(raw, "rating"),
		DeliveryFee: floatField(raw, "delivery_fee", "minimum_delivery_fee"),
		Categories:  categoryField(raw, "categories", "cuisines"),
		FetchedAt:   fetchedAt.UTC(),
	}

	// Coordinates are sometimes nested under "location".
	row.Latitude = floatField(raw, "latitude")
	row.Longitude = floatField(raw, "longitude")
	if row.Latitude == nil || row.Longitude == nil {
		if loc, ok := raw["location"].(map[string]any); ok {
			if row.Latitude == nil {
				row.Latitude = floatField(loc, "latitude", "lat")
			}
			if row.Longitude == nil {
				row.Longitude = floatField(loc, "longitude", "lon", "lng")
			}
		}
	}

	return row, nil
}

// stringField returns the first key that holds a non-empty string.
func stringField(raw map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// floatField returns the first key that coerces to a float. Upstream has
// shipped numbers as JSON numbers, integers, and quoted strings at various
// points; all three are accepted.
func floatField(raw map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case int:
			f := float64(n)
			return &f
		case int64:
			f := float64(n)
			return &f
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return &f
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// categoryField collects category names from the first key holding a list.
// Entries may be plain strings or objects with a "name" field.
func categoryField(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		items, ok := raw[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			switch c := item.(type) {
			case string:
				if c != "" {
					out = append(out, c)
				}
			case map[string]any:
				if name, ok := c["name"].(string); ok && name != "" {
					out = append(out, name)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
