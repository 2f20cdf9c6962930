package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type GroupBy string

const (
	GroupByDate     GroupBy = "date"
	GroupBySeverity GroupBy = "severity"
	GroupBySource   GroupBy = "source"
)

type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalMonth Interval = "month"
)

// Bucket is one row of an aggregation. Key is an ISO date for date
// grouping, otherwise the severity or source.
type Bucket struct {
	Key   string
	Count int
}

// MarshalBuckets writes buckets in the wire shape, keyed by the group name:
// [{"date": "2024-03-01", "count": 4}, ...].
func MarshalBuckets(group GroupBy, buckets []Bucket) ([]byte, error) {
	rows := make([]map[string]any, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, map[string]any{string(group): b.Key, "count": b.Count})
	}
	return json.Marshal(rows)
}

func UnmarshalBuckets(group GroupBy, data []byte) ([]Bucket, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s aggregation: %w", group, err)
	}
	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		var b Bucket
		if err := json.Unmarshal(row[string(group)], &b.Key); err != nil {
			return nil, fmt.Errorf("decode %s aggregation key: %w", group, err)
		}
		if err := json.Unmarshal(row["count"], &b.Count); err != nil {
			return nil, fmt.Errorf("decode %s aggregation count: %w", group, err)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// Aggregate counts logs per group. Date buckets are in ascending date order;
// severity and source buckets are in descending count order.
func Aggregate(entries []Log, group GroupBy, interval Interval) []Bucket {
	counts := map[string]int{}
	for _, l := range entries {
		counts[bucketKey(l, group, interval)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, Bucket{Key: k, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if group == GroupByDate {
			return buckets[i].Key < buckets[j].Key
		}
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

func bucketKey(l Log, group GroupBy, interval Interval) string {
	switch group {
	case GroupBySeverity:
		return string(l.Severity)
	case GroupBySource:
		return l.Source
	}
	ts := l.Timestamp.UTC()
	if interval == IntervalMonth {
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
	}
	return ts.Format(time.DateOnly)
}
