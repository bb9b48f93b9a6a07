package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacow_reports/internal/app"
	"jacow_reports/internal/domain"
	"jacow_reports/internal/reporting"
)

func f64(v float64) *float64 { return &v }

func sampleEvents() *fakeEvents {
	quality := domain.RatingQuestion{QuestionInfo: domain.QuestionInfo{ID: 1, Title: "Quality", Position: 1}}
	return &fakeEvents{
		ev: domain.Event{
			ID:     7,
			Title:  "IPAC'26",
			Tracks: []domain.Track{{ID: 10, Title: "Beam Dynamics", Position: 1}},
		},
		questions: []domain.Question{quality},
		fields:    []domain.ContributionField{{ID: 3, Title: "Funding"}},
		abstracts: []domain.Abstract{
			{
				ID: 5, FriendlyID: 1, EventID: 7, Title: "Beam optics", State: domain.StateSubmitted,
				SubmittedTrackIDs: []int64{10},
				Fields:            map[int64]string{3: "EU"},
				Reviews: []domain.Review{
					{ID: 50, TrackID: 10, UserID: 2, Reviewer: "Grace Hopper",
						Ratings: []domain.Rating{{QuestionID: 1, Score: f64(4)}}},
				},
			},
			{ID: 6, FriendlyID: 2, EventID: 7, Title: "RF cavities", State: domain.StateSubmitted, SubmittedTrackIDs: []int64{10}},
		},
	}
}

func TestStatistics_AbstractStatsCachedWithinTTL(t *testing.T) {
	ctx := context.Background()
	ev := sampleEvents()
	cache := &fakeCache{}
	svc := app.NewStatisticsService(ev, cache, 15*time.Minute)

	first, err := svc.AbstractStats(ctx, 7)
	require.NoError(t, err)
	second, err := svc.AbstractStats(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, ev.loads, "second call must be served from cache")
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, 2, second.Totals["total"])
	assert.Equal(t, 1, second.Totals["reviewed"])
	require.Len(t, second.Rows, 1)
	assert.Equal(t, "Beam Dynamics", second.Rows[0].Title)

	cache.expire("abstract-stats:7")
	_, err = svc.AbstractStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.loads, "expired entry is recomputed")
	assert.Equal(t, 2, cache.sets)
}

func TestStatistics_ReviewerStatsCached(t *testing.T) {
	ctx := context.Background()
	ev := sampleEvents()
	svc := app.NewStatisticsService(ev, &fakeCache{}, time.Minute)

	rows, err := svc.ReviewerStats(ctx, 7)
	require.NoError(t, err)
	_, err = svc.ReviewerStats(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, ev.loads)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Abstracts)
	assert.Equal(t, 1, rows[0].Reviews)
	require.Len(t, rows[0].Reviewers, 1)
	assert.Equal(t, "Grace Hopper", rows[0].Reviewers[0].Name)
}

func TestStatistics_NoCache(t *testing.T) {
	ev := sampleEvents()
	svc := app.NewStatisticsService(ev, nil, time.Minute)

	_, err := svc.AbstractStats(context.Background(), 7)
	require.NoError(t, err)
	_, err = svc.AbstractStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.loads)
}

func TestStatistics_EventNotFound(t *testing.T) {
	ev := sampleEvents()
	ev.eventErr = domain.ErrNotFound
	svc := app.NewStatisticsService(ev, &fakeCache{}, time.Minute)

	_, err := svc.AbstractStats(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExport_BuildSheet(t *testing.T) {
	ev := sampleEvents()
	svc := app.NewExportService(ev, "https://indico.jacow.org/")

	sheet, err := svc.BuildSheet(context.Background(), 7, []int64{5}, reporting.ExportConfig{
		StaticItemIDs: []string{"submitted_for_tracks"},
		DynamicItems:  []int64{3},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ev.lastIDs)

	assert.Equal(t, []string{"Id", "Title", "Submitted for tracks", "Funding"}, sheet.Columns[:4])
	assert.Equal(t, reporting.URLColumn, sheet.Columns[len(sheet.Columns)-1])
	assert.Contains(t, sheet.Columns, "Question Quality (AVG score)")

	require.Len(t, sheet.Rows, 1)
	row := sheet.Rows[0]
	assert.Equal(t, 1, row["Id"])
	assert.Equal(t, "EU", row["Funding"])
	assert.Equal(t, 4.0, row["Question Quality (AVG score)"])
	assert.Equal(t, "", row["Question Quality (STD deviation)"])
	assert.Equal(t, "https://indico.jacow.org/event/7/abstracts/5/", row[reporting.URLColumn])
}

func TestExport_AllAbstractsWhenNoIDs(t *testing.T) {
	ev := sampleEvents()
	svc := app.NewExportService(ev, "https://indico.jacow.org")

	sheet, err := svc.BuildSheet(context.Background(), 7, nil, reporting.ExportConfig{})
	require.NoError(t, err)
	assert.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"Id", "Title"}, sheet.Columns[:2])
}
