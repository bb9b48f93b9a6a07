package httpserver

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"jacow_reports/internal/adapters/observability"
	"jacow_reports/internal/adapters/spreadsheet"
	"jacow_reports/internal/app"
	"jacow_reports/internal/domain"
	"jacow_reports/internal/reporting"
)

type Statistics interface {
	AbstractStats(ctx context.Context, eventID int64) (reporting.AbstractStatistics, error)
	ReviewerStats(ctx context.Context, eventID int64) ([]reporting.ReviewerStatsRow, error)
}

type Exporter interface {
	BuildSheet(ctx context.Context, eventID int64, ids []int64, cfg reporting.ExportConfig) (reporting.Sheet, error)
}

type MailingLists interface {
	Lists(ctx context.Context, u domain.User) ([]domain.MailingList, error)
	Subscribe(ctx context.Context, u domain.User, ids []int64) (domain.SubscriptionOutcome, error)
	Unsubscribe(ctx context.Context, u domain.User, ids []int64) (domain.SubscriptionOutcome, error)
}

type Affiliations interface {
	Create(ctx context.Context, a domain.Affiliation) (domain.Affiliation, error)
	ReplaceLinkAffiliations(ctx context.Context, eventID int64, kind domain.PersonLinkKind, linkID int64, ids []int64) error
}

type Managers interface {
	Import(ctx context.Context, eventID int64, r io.Reader) (app.ImportResult, error)
	Export(ctx context.Context, eventID int64, w io.Writer) error
}

type Handlers struct {
	Stats        Statistics
	Export       Exporter
	Lists        MailingLists
	Affiliations Affiliations
	Managers     Managers
}

type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

const maxUpload = 10 << 20

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/event/{event_id}", func(r chi.Router) {
		r.Get("/abstracts/reviewing/statistics", h.reviewerStats)
		r.Get("/manage/abstracts/statistics", h.abstractStats)
		r.Post("/manage/abstracts/abstracts_custom.csv", h.exportCSV)
		r.Post("/manage/abstracts/abstracts_custom.xlsx", h.exportXLSX)
		r.Post("/manage/papers/managers/import", h.importManagers)
		r.Get("/manage/papers/managers/export", h.exportManagers)
		r.Put("/person-links/{kind}/{link_id}/affiliations", h.replaceAffiliations)
	})

	s.mux.Get("/mailing-lists", h.listMailingLists)
	s.mux.Post("/mailing-lists/subscribe", h.subscribe)
	s.mux.Post("/mailing-lists/unsubscribe", h.unsubscribe)
	s.mux.Post("/affiliations", h.createAffiliation)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDoc(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemDoc(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem documents.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemDoc(w, problem{
			Type: "about:blank", Title: "Invalid input", Status: http.StatusUnprocessableEntity,
			Errors: verr.Problems,
		})
	case errors.Is(err, domain.ErrInvalid):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "request cancelled")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCachedJSON answers 304 when the client already holds this version.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return id, nil
}

func eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "event_id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := userFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "login required")
	}
	return u, ok
}

/********** statistics **********/

func (h *Handlers) abstractStats(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	out, err := h.Stats.AbstractStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCachedJSON(w, r, out)
}

func (h *Handlers) reviewerStats(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	out, err := h.Stats.ReviewerStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCachedJSON(w, r, out)
}

/********** exports **********/

func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxUpload)
	}
	return r.ParseForm()
}

func formInts(r *http.Request, key string) ([]int64, error) {
	var out []int64
	for _, v := range r.Form[key] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a number", key, part)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

func formStrings(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.Form[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handlers) buildSheet(w http.ResponseWriter, r *http.Request) (reporting.Sheet, bool) {
	id, ok := eventID(w, r)
	if !ok {
		return reporting.Sheet{}, false
	}
	if err := parseForm(r); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid form")
		return reporting.Sheet{}, false
	}
	abstractIDs, err := formInts(r, "abstract_id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return reporting.Sheet{}, false
	}
	dynamic, err := formInts(r, "dynamic_items")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return reporting.Sheet{}, false
	}
	cfg := reporting.ExportConfig{StaticItemIDs: formStrings(r, "static_item_ids"), DynamicItems: dynamic}
	sheet, err := h.Export.BuildSheet(r.Context(), id, abstractIDs, cfg)
	if err != nil {
		writeError(w, r, err)
		return reporting.Sheet{}, false
	}
	return sheet, true
}

func sendFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to write file")
	}
}

func (h *Handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	sheet, ok := h.buildSheet(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteCSV(&buf, sheet); err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveExport("csv", len(sheet.Rows))
	sendFile(w, spreadsheet.CSVContentType, "abstracts.csv", buf.Bytes())
}

func (h *Handlers) exportXLSX(w http.ResponseWriter, r *http.Request) {
	sheet, ok := h.buildSheet(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteXLSX(&buf, sheet); err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveExport("xlsx", len(sheet.Rows))
	sendFile(w, spreadsheet.XLSXContentType, "abstracts.xlsx", buf.Bytes())
}

/********** peer-review managers **********/

func (h *Handlers) importManagers(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	body := io.Reader(r.Body)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", `missing "file" upload`)
			return
		}
		defer f.Close()
		body = f
	}
	res, err := h.Managers.Import(r.Context(), id, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) exportManagers(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.Managers.Export(r.Context(), id, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	sendFile(w, spreadsheet.CSVContentType, "peer_review_managers.csv", buf.Bytes())
}

/********** affiliations **********/

type affiliationDTO struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	CountryCode string `json:"country_code"`
}

func (h *Handlers) createAffiliation(w http.ResponseWriter, r *http.Request) {
	var in affiliationDTO
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Affiliations.Create(r.Context(), domain.Affiliation{
		Name: in.Name, Street: in.Street, City: in.City, Postcode: in.Postcode, CountryCode: in.CountryCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, affiliationDTO{
		ID: a.ID, Name: a.Name, Street: a.Street, City: a.City, Postcode: a.Postcode, CountryCode: a.CountryCode,
	})
}

func (h *Handlers) replaceAffiliations(w http.ResponseWriter, r *http.Request) {
	ev, ok := eventID(w, r)
	if !ok {
		return
	}
	linkID, err := pathID(r, "link_id")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var in struct {
		AffiliationIDs []int64 `json:"affiliation_ids"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	kind := domain.PersonLinkKind(chi.URLParam(r, "kind"))
	if err := h.Affiliations.ReplaceLinkAffiliations(r.Context(), ev, kind, linkID, in.AffiliationIDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** mailing lists **********/

type listSelection struct {
	ListIDs []int64 `json:"lists_ids"`
}

func (h *Handlers) listMailingLists(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	lists, err := h.Lists.Lists(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *Handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscription(w, r, h.Lists.Subscribe)
}

func (h *Handlers) unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscription(w, r, h.Lists.Unsubscribe)
}

func (h *Handlers) changeSubscription(w http.ResponseWriter, r *http.Request,
	op func(context.Context, domain.User, []int64) (domain.SubscriptionOutcome, error)) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in listSelection
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := op(r.Context(), u, in.ListIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
