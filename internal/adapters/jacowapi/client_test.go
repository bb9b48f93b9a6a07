package jacowapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jacow_reports/internal/adapters/jacowapi"
	"jacow_reports/internal/domain"
)

func TestMailingLists_ListLists_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"lists": []any{
				map[string]any{"id": 1.0, "name": "IPAC"},
				map[string]any{"id": 2.0, "name": "LINAC"},
			}})
		}
	}))
	defer ts.Close()

	ml, err := jacowapi.NewMailingLists(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := ml.ListLists(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[1]["name"] != "LINAC" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestMailingLists_SubscribeSendsMember(t *testing.T) {
	var gotPath, gotMethod string
	var body map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	ml, _ := jacowapi.NewMailingLists(ts.URL, "k", 100)
	if err := ml.Subscribe(context.Background(), 7, "ada@example.org", "Ada Lovelace"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/lists/7/members" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if body["email"] != "ada@example.org" || body["name"] != "Ada Lovelace" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestMailingLists_MemberListsUnknownMember(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	ml, _ := jacowapi.NewMailingLists(ts.URL, "k", 100)
	got, err := ml.MemberLists(context.Background(), "nobody@example.org")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v / %v", got, err)
	}
}

func TestClient_ErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"list is closed"}`))
	}))
	defer ts.Close()

	ml, _ := jacowapi.NewMailingLists(ts.URL, "k", 100)
	err := ml.Unsubscribe(context.Background(), 3, "ada@example.org")
	var se *jacowapi.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusConflict {
		t.Fatalf("expected StatusError 409, got %v", err)
	}
	if msg := jacowapi.Message(err); msg != "list is closed" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestDirectory_GetProfile_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	d, err := jacowapi.NewDirectory(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = d.GetProfile(ctx, "jacow-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDirectory_SearchByEmail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "ada@example.org" || r.URL.Query().Get("exact") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([]any{map[string]any{"identifier": "jacow-9"}})
	}))
	defer ts.Close()

	d, _ := jacowapi.NewDirectory(ts.URL, "k", 100)
	got, err := d.SearchByEmail(context.Background(), "ada@example.org")
	if err != nil || len(got) != 1 || got[0]["identifier"] != "jacow-9" {
		t.Fatalf("unexpected result %v / %v", got, err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := jacowapi.New("x", "http://localhost", "", 1); err == nil {
		t.Fatal("expected error for missing key")
	}
}
