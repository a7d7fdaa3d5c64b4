package uploader

import (
	"fmt"
	"time"
)

// PartitionKey identifies the hive-style object prefix for one city and one
// calendar date. It is derived once per city job from the run's UTC start,
// so a fetch loop spanning midnight still lands in a single partition.
type PartitionKey struct {
	CityID string
	Year   int
	Month  int
	Day    int
}

// NewPartitionKey derives the partition for a city from the run start.
func NewPartitionKey(cityID string, runStart time.Time) PartitionKey {
	utc := runStart.UTC()
	return PartitionKey{
		CityID: cityID,
		Year:   utc.Year(),
		Month:  int(utc.Month()),
		Day:    utc.Day(),
	}
}

// Prefix returns the partition path prefix.
func (k PartitionKey) Prefix() string {
	return fmt.Sprintf("city_id=%s/year=%04d/month=%02d/day=%02d", k.CityID, k.Year, k.Month, k.Day)
}

// ObjectKey returns the full object key for a snapshot written at runTS.
// The run timestamp makes same-day runs produce distinct objects.
func (k PartitionKey) ObjectKey(runTS time.Time, ext string) string {
	return fmt.Sprintf("%s/vendors_%d.%s", k.Prefix(), runTS.Unix(), ext)
}
