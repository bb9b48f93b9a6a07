package app_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacow_reports/internal/app"
	"jacow_reports/internal/domain"
)

var ada = domain.User{ID: 1, Email: "ada@example.org", FirstName: "Ada", LastName: "Lovelace"}

func sampleLists() *fakeLists {
	return &fakeLists{
		lists: []map[string]any{
			{"id": float64(1), "name": "JACoW announcements"},
			{"list_id": "2", "title": "SRF community"},
			{"name": "broken, no id"},
		},
		member: []map[string]any{{"id": float64(2)}},
	}
}

func TestMailingLists_ListsWithSubscription(t *testing.T) {
	client := sampleLists()
	cache := &fakeCache{}
	svc := app.NewMailingListService(client, cache, time.Hour)

	lists, err := svc.Lists(context.Background(), ada)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, domain.MailingList{ID: 1, Name: "JACoW announcements"}, lists[0])
	assert.Equal(t, domain.MailingList{ID: 2, Name: "SRF community", Subscribed: true}, lists[1])

	_, err = svc.Lists(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, 1, client.listHits, "catalogue is cached")
}

func TestMailingLists_SubscribeOneFailing(t *testing.T) {
	client := sampleLists()
	client.failOn = map[int64]error{1: errors.New("remote 500")}
	svc := app.NewMailingListService(client, nil, 0)

	out, err := svc.Subscribe(context.Background(), ada, []int64{1, 2, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, []domain.ListResult{{ListID: 2}}, out.Results)
	require.Len(t, out.Errors, 2)
	assert.Equal(t, int64(1), out.Errors[0].ListID)
	assert.Equal(t, "remote 500", out.Errors[0].Message)
	assert.Equal(t, domain.ListError{ListID: 99, Message: "unknown mailing list"}, out.Errors[1])
	assert.Equal(t, []int64{1, 2}, client.calls, "duplicates and unknown ids are not sent")
}

func TestMailingLists_UnsubscribeValidation(t *testing.T) {
	svc := app.NewMailingListService(sampleLists(), nil, 0)

	_, err := svc.Unsubscribe(context.Background(), domain.User{ID: 3}, nil)
	require.ErrorIs(t, err, domain.ErrInvalid)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
}

func TestMailingLists_NotFoundMessage(t *testing.T) {
	client := sampleLists()
	client.failOn = map[int64]error{2: domain.ErrNotFound}
	svc := app.NewMailingListService(client, nil, 0)

	out, err := svc.Unsubscribe(context.Background(), ada, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.Equal(t, []domain.ListError{{ListID: 2, Message: "not found"}}, out.Errors)
}

func TestAffiliations_CountryValidation(t *testing.T) {
	repo := &fakeAffiliations{}
	svc := app.NewAffiliationService(repo)

	_, err := svc.Create(context.Background(), domain.Affiliation{Name: "Nowhere Lab", CountryCode: "XX"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = svc.Create(context.Background(), domain.Affiliation{Name: "Nowhere Lab", CountryCode: "CHE"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
	assert.Empty(t, repo.created)

	a, err := svc.Create(context.Background(), domain.Affiliation{Name: " CERN ", City: "Meyrin", CountryCode: "ch"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "CERN", a.Name)
	assert.Equal(t, "CH", a.CountryCode)
}

func TestAffiliations_NameRequired(t *testing.T) {
	svc := app.NewAffiliationService(&fakeAffiliations{})
	_, err := svc.Create(context.Background(), domain.Affiliation{CountryCode: "DE"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestAffiliations_Replace(t *testing.T) {
	repo := &fakeAffiliations{
		existing:  map[int64]bool{1: true, 2: true},
		linkEvent: map[int64]int64{100: 7},
	}
	svc := app.NewAffiliationService(repo)
	ctx := context.Background()

	require.NoError(t, svc.ReplaceLinkAffiliations(ctx, 7, domain.AbstractPersonLink, 100, []int64{2, 1}))
	assert.Equal(t, []int64{2, 1}, repo.replaced[100])

	err := svc.ReplaceLinkAffiliations(ctx, 7, domain.AbstractPersonLink, 100, []int64{1, 1})
	assert.ErrorIs(t, err, domain.ErrInvalid, "duplicates rejected")

	err = svc.ReplaceLinkAffiliations(ctx, 7, domain.AbstractPersonLink, 100, []int64{1, 3})
	assert.ErrorIs(t, err, domain.ErrInvalid, "unknown affiliation")

	err = svc.ReplaceLinkAffiliations(ctx, 8, domain.AbstractPersonLink, 100, []int64{1})
	assert.ErrorIs(t, err, domain.ErrNotFound, "link of another event")

	err = svc.ReplaceLinkAffiliations(ctx, 7, domain.PersonLinkKind("session"), 100, []int64{1})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestManagers_Import(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]domain.User{
		"ada@example.org":   ada,
		"grace@example.org": {ID: 2, Email: "grace@example.org"},
	}}
	svc := app.NewPeerReviewManagerService(users)

	csvIn := "name,email\nAda,ADA@example.org\n\nGrace,grace@example.org\nBob,bob@example.org\nAda again,ada@example.org\n"
	res, err := svc.Import(context.Background(), 7, strings.NewReader(csvIn))
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.org", "grace@example.org"}, res.Granted)
	assert.Equal(t, []string{"bob@example.org"}, res.Unknown)
	assert.Equal(t, []int64{1, 2}, users.granted)
}

func TestManagers_ImportInvalidEmailGrantsNobody(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]domain.User{"ada@example.org": ada}}
	svc := app.NewPeerReviewManagerService(users)

	csvIn := "email\nada@example.org\nnot-an-email\nGrace <grace@example.org>\n"
	_, err := svc.Import(context.Background(), 7, strings.NewReader(csvIn))
	require.ErrorIs(t, err, domain.ErrInvalid)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 2)
	assert.Equal(t, "row 3", verr.Problems[0].Field)
	assert.Equal(t, "row 4", verr.Problems[1].Field)
	assert.Zero(t, users.grants)
}

func TestManagers_ImportMissingColumn(t *testing.T) {
	svc := app.NewPeerReviewManagerService(&fakeUsers{})
	_, err := svc.Import(context.Background(), 7, strings.NewReader("name\nAda\n"))
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = svc.Import(context.Background(), 7, strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestManagers_Export(t *testing.T) {
	users := &fakeUsers{managers: []domain.User{ada, {ID: 2, Email: "x@example.org", LastName: "Hopper"}}}
	svc := app.NewPeerReviewManagerService(users)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), 7, &buf))
	assert.Equal(t, "Name,Email\nAda Lovelace,ada@example.org\nHopper,x@example.org\n", buf.String())
}
