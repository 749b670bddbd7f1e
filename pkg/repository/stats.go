package repository

import (
	"strconv"
	"strings"
)

// ResourceStats returns the hit count of every stub hit at least once, keyed
// by current resource ID.
func (r *Repository) ResourceStats() map[int]int64 {
	out := map[int]int64{}
	for i, e := range r.store.Load().Entries() {
		if n := e.Hits(); n > 0 {
			out[i] = n
		}
	}
	return out
}

// ResourceStatsCSV renders ResourceStats as CSV ordered by resource ID, with
// the header resourceId,hits.
func (r *Repository) ResourceStatsCSV() string {
	var sb strings.Builder
	sb.WriteString("resourceId,hits\n")
	for i, e := range r.store.Load().Entries() {
		if n := e.Hits(); n > 0 {
			sb.WriteString(strconv.Itoa(i))
			sb.WriteByte(',')
			sb.WriteString(strconv.FormatInt(n, 10))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
