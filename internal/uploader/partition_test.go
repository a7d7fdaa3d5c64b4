package uploader

import (
	"testing"
	"time"
)

func TestObjectKeyFormat(t *testing.T) {
	runStart := time.Date(2025, 3, 5, 23, 50, 0, 0, time.UTC)
	key := NewPartitionKey("69036", runStart)

	got := key.ObjectKey(runStart, "parquet")
	want := "city_id=69036/year=2025/month=03/day=05/vendors_1741218600.parquet"
	if got != want {
		t.Errorf("object key mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSameDayRunsProduceDistinctKeys(t *testing.T) {
	morning := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC)

	k1 := NewPartitionKey("69036", morning)
	k2 := NewPartitionKey("69036", evening)

	if k1.Prefix() != k2.Prefix() {
		t.Errorf("same-day runs must share a partition prefix: %s vs %s", k1.Prefix(), k2.Prefix())
	}
	if k1.ObjectKey(morning, "parquet") == k2.ObjectKey(evening, "parquet") {
		t.Error("same-day runs must produce distinct object keys")
	}
}

// A run starting before midnight uploads after midnight: the partition
// stays keyed by the run's start date.
func TestPartitionPinnedToRunStart(t *testing.T) {
	runStart := time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC)
	key := NewPartitionKey("69036", runStart)

	if key.Day != 5 || key.Month != 3 {
		t.Errorf("partition drifted from run start: %+v", key)
	}
	// Even the object name keeps the run timestamp, not the upload time.
	got := key.ObjectKey(runStart, "parquet")
	want := "city_id=69036/year=2025/month=03/day=05/vendors_1741219140.parquet"
	if got != want {
		t.Errorf("object key mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestPartitionKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("PKT", 5*3600)
	// 02:30 PKT on March 6 is 21:30 UTC on March 5.
	runStart := time.Date(2025, 3, 6, 2, 30, 0, 0, loc)

	key := NewPartitionKey("69036", runStart)
	if key.Day != 5 {
		t.Errorf("expected UTC day 5, got %d", key.Day)
	}
}
