package reporting

import "jacow_reports/internal/domain"

// RollUpCounts returns a copy of base extended with one entry per track group,
// holding the sum of its member tracks. Tracks missing from base count as zero.
func RollUpCounts(base map[domain.TrackKey]int, ev domain.Event) map[domain.TrackKey]int {
	return rollUp(base, ev,
		func(v int) int { return v },
		func() int { return 0 },
		func(acc, v int) int { return acc + v },
	)
}

// RollUpCountSets is RollUpCounts for per-attribute counts; groups are summed
// attribute by attribute over every attribute any member track carries.
func RollUpCountSets(base map[domain.TrackKey]map[string]int, ev domain.Event) map[domain.TrackKey]map[string]int {
	return rollUp(base, ev,
		copyCounts,
		func() map[string]int { return map[string]int{} },
		func(acc, v map[string]int) map[string]int {
			for k, n := range v {
				acc[k] += n
			}
			return acc
		},
	)
}

func rollUp[V any](base map[domain.TrackKey]V, ev domain.Event, clone func(V) V, zero func() V, add func(V, V) V) map[domain.TrackKey]V {
	out := make(map[domain.TrackKey]V, len(base)+len(ev.Groups))
	for k, v := range base {
		if !k.Group {
			out[k] = clone(v)
		}
	}
	for _, g := range ev.Groups {
		out[domain.GroupNode(g.ID)] = zero()
	}
	for _, t := range ev.Tracks {
		if t.GroupID == nil {
			continue
		}
		gk := domain.GroupNode(*t.GroupID)
		acc, ok := out[gk]
		if !ok {
			// group referenced by a track but not loaded with the event
			acc = zero()
		}
		if v, ok := base[domain.TrackNode(t.ID)]; ok {
			acc = add(acc, v)
		}
		out[gk] = acc
	}
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
