package logs

import (
	"sort"
	"strings"
)

// DefaultOrdering lists the newest entries first.
const DefaultOrdering = "-timestamp"

// Sort orders entries in place by a comma separated ordering such as
// "-severity,timestamp". Ties are broken by descending ID. Severity sorts by
// name, not by level.
func Sort(entries []Log, ordering string) {
	if ordering == "" {
		ordering = DefaultOrdering
	}
	keys := strings.Split(ordering, ",")

	sort.SliceStable(entries, func(i, j int) bool {
		for _, key := range keys {
			key = strings.TrimSpace(key)
			desc := strings.HasPrefix(key, "-")
			if c := compareField(entries[i], entries[j], strings.TrimPrefix(key, "-")); c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
		}
		return entries[i].ID > entries[j].ID
	})
}

func compareField(a, b Log, field string) int {
	switch field {
	case "timestamp":
		return a.Timestamp.Compare(b.Timestamp)
	case "severity":
		return strings.Compare(string(a.Severity), string(b.Severity))
	case "source":
		return strings.Compare(a.Source, b.Source)
	}
	return 0
}
