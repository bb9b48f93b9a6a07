package reporting

import (
	"sort"

	"jacow_reports/internal/domain"
)

const (
	CountTotal    = "total"
	CountReviewed = "reviewed"
)

// TreeNode is one line of a track statistics table. Groups and ungrouped
// tracks have Depth 0; tracks inside a group follow it with Depth 1.
type TreeNode struct {
	Key   domain.TrackKey `json:"-"`
	ID    int64           `json:"id"`
	Group bool            `json:"group"`
	Title string          `json:"title"`
	Depth int             `json:"depth"`
}

// TrackTree orders groups and ungrouped tracks by position, each group
// directly followed by its own tracks.
func TrackTree(ev domain.Event) []TreeNode {
	type top struct {
		node TreeNode
		pos  int
	}
	var tops []top
	for _, g := range ev.Groups {
		tops = append(tops, top{TreeNode{Key: domain.GroupNode(g.ID), ID: g.ID, Group: true, Title: g.Title}, g.Position})
	}
	members := make(map[int64][]domain.Track)
	for _, t := range ev.Tracks {
		if t.GroupID != nil {
			members[*t.GroupID] = append(members[*t.GroupID], t)
			continue
		}
		tops = append(tops, top{TreeNode{Key: domain.TrackNode(t.ID), ID: t.ID, Title: t.Title}, t.Position})
	}
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].pos < tops[j].pos })

	var out []TreeNode
	for _, tp := range tops {
		out = append(out, tp.node)
		if !tp.node.Group {
			continue
		}
		ts := members[tp.node.ID]
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].Position < ts[j].Position })
		for _, t := range ts {
			out = append(out, TreeNode{Key: domain.TrackNode(t.ID), ID: t.ID, Title: t.Title, Depth: 1})
		}
	}
	return out
}

type AbstractStatsRow struct {
	TreeNode
	Counts map[string]int `json:"counts"`
}

type AbstractStatistics struct {
	Columns []string           `json:"columns"`
	Rows    []AbstractStatsRow `json:"rows"`
	Totals  map[string]int     `json:"totals"`
}

// AbstractStats counts abstracts per state for every track, rolled up into
// track groups. An accepted abstract counts in its accepted track, any other
// abstract in each track it was submitted for. Totals count each abstract once.
func AbstractStats(ev domain.Event, abstracts []domain.Abstract) AbstractStatistics {
	cols := make([]string, 0, len(domain.AbstractStates)+2)
	for _, s := range domain.AbstractStates {
		cols = append(cols, string(s))
	}
	cols = append(cols, CountTotal, CountReviewed)

	base := make(map[domain.TrackKey]map[string]int)
	totals := make(map[string]int, len(cols))
	for _, c := range cols {
		totals[c] = 0
	}
	for _, a := range abstracts {
		totals[string(a.State)]++
		totals[CountTotal]++
		if len(a.Reviews) > 0 {
			totals[CountReviewed]++
		}
		for _, tid := range countedTracks(a) {
			k := domain.TrackNode(tid)
			if base[k] == nil {
				base[k] = map[string]int{}
			}
			base[k][string(a.State)]++
			base[k][CountTotal]++
			if reviewedIn(a, tid) {
				base[k][CountReviewed]++
			}
		}
	}

	rolled := RollUpCountSets(base, ev)
	out := AbstractStatistics{Columns: cols, Totals: totals}
	for _, n := range TrackTree(ev) {
		counts := make(map[string]int, len(cols))
		for _, c := range cols {
			counts[c] = rolled[n.Key][c]
		}
		out.Rows = append(out.Rows, AbstractStatsRow{TreeNode: n, Counts: counts})
	}
	return out
}

func countedTracks(a domain.Abstract) []int64 {
	if a.State == domain.StateAccepted && a.AcceptedTrackID != nil {
		return []int64{*a.AcceptedTrackID}
	}
	return a.SubmittedTrackIDs
}

func reviewedIn(a domain.Abstract, trackID int64) bool {
	for _, rv := range a.Reviews {
		if rv.TrackID == trackID {
			return true
		}
	}
	return false
}

type ReviewerCount struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Reviewed int    `json:"reviewed"`
}

type ReviewerStatsRow struct {
	TreeNode
	Abstracts int             `json:"abstracts"`
	Reviews   int             `json:"reviews"`
	Reviewers []ReviewerCount `json:"reviewers,omitempty"`
}

// ReviewerStats reports, per track, how many abstracts were submitted for it
// and how many each reviewer has reviewed there. Group rows carry the summed
// abstract and review counts of their tracks.
func ReviewerStats(ev domain.Event, abstracts []domain.Abstract) []ReviewerStatsRow {
	submitted := make(map[domain.TrackKey]int)
	reviews := make(map[domain.TrackKey]int)
	perReviewer := make(map[int64]map[int64]*ReviewerCount)
	for _, a := range abstracts {
		for _, tid := range a.SubmittedTrackIDs {
			submitted[domain.TrackNode(tid)]++
		}
		for _, rv := range a.Reviews {
			reviews[domain.TrackNode(rv.TrackID)]++
			byUser := perReviewer[rv.TrackID]
			if byUser == nil {
				byUser = make(map[int64]*ReviewerCount)
				perReviewer[rv.TrackID] = byUser
			}
			rc := byUser[rv.UserID]
			if rc == nil {
				rc = &ReviewerCount{UserID: rv.UserID, Name: rv.Reviewer}
				byUser[rv.UserID] = rc
			}
			rc.Reviewed++
		}
	}

	submitted = RollUpCounts(submitted, ev)
	reviews = RollUpCounts(reviews, ev)
	var out []ReviewerStatsRow
	for _, n := range TrackTree(ev) {
		row := ReviewerStatsRow{TreeNode: n, Abstracts: submitted[n.Key], Reviews: reviews[n.Key]}
		if !n.Group {
			for _, rc := range perReviewer[n.ID] {
				row.Reviewers = append(row.Reviewers, *rc)
			}
			sort.Slice(row.Reviewers, func(i, j int) bool {
				if row.Reviewers[i].Reviewed != row.Reviewers[j].Reviewed {
					return row.Reviewers[i].Reviewed > row.Reviewers[j].Reviewed
				}
				return row.Reviewers[i].Name < row.Reviewers[j].Name
			})
		}
		out = append(out, row)
	}
	return out
}
