//go:build integration

package integration

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "jacow_reports/internal/adapters/http_server"
	redisad "jacow_reports/internal/adapters/redis"
	"jacow_reports/internal/app"
	mysqlrepo "jacow_reports/internal/storage/mysql"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err, "read migrations dir %s", dir)
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	require.NotEmpty(t, files, "no .sql files in %s", dir)
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Exec(string(sqlBytes))
		require.NoError(t, err, "exec %s", f)
	}
}

const seedSQL = `
INSERT INTO users (id, email, first_name, last_name) VALUES
  (1, 'ada@example.org', 'Ada', 'Lovelace'),
  (2, 'grace@example.org', 'Grace', 'Hopper');
INSERT INTO events (id, title) VALUES (7, 'IPAC''26');
INSERT INTO tracks (id, event_id, title, code, position) VALUES (10, 7, 'Beam Dynamics', 'BD', 1);
INSERT INTO abstract_review_questions (id, event_id, title, field_type, position) VALUES (1, 7, 'Quality', 'rating', 1);
INSERT INTO abstracts (id, friendly_id, event_id, title, state, submitter_id, submitted_dt) VALUES
  (5, 1, 7, 'Beam optics', 'submitted', 1, '2026-01-10 09:30:00'),
  (6, 2, 7, 'RF cavities', 'submitted', 2, '2026-01-11 10:00:00');
INSERT INTO abstract_submitted_tracks (abstract_id, track_id) VALUES (5, 10), (6, 10);
INSERT INTO abstract_person_links (id, abstract_id, full_name, author_type, is_speaker, display_order) VALUES
  (100, 5, 'Ada Lovelace', 1, TRUE, 0);
INSERT INTO affiliations (id, name, city, postcode, country_code) VALUES (1, 'CERN', 'Meyrin', '1211', 'CH');
INSERT INTO abstract_affiliations (person_link_id, affiliation_id, display_order) VALUES (100, 1, 0);
INSERT INTO abstract_reviews (id, abstract_id, track_id, user_id) VALUES (50, 5, 10, 2), (51, 5, 10, 1);
INSERT INTO abstract_review_ratings (review_id, question_id, score) VALUES (50, 1, 4), (51, 1, 5);
`

// ---------- the test ----------
func TestHTTP_E2E_ExportAndStatistics(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=jacow"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/jacow?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	require.NoError(t, pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}))
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	_, err = db.Exec(seedSQL)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	repo := mysqlrepo.New(db)
	cache := redisad.New(mr.Addr(), "", 0)

	srv := server.New(repo)
	srv.MountHandlers(&server.Handlers{
		Stats:        app.NewStatisticsService(repo, cache, time.Minute),
		Export:       app.NewExportService(repo, "https://indico.jacow.org"),
		Affiliations: app.NewAffiliationService(repo),
		Managers:     app.NewPeerReviewManagerService(repo),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	// CSV export
	form := url.Values{"static_item_ids": {"submitter", "score"}}
	resp, err := http.PostForm(ts.URL+"/event/7/manage/abstracts/abstracts_custom.csv", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Id,Title,Submitter,Score,Speakers (country),"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], ",Question Quality (total count),Question Quality (AVG score),Question Quality (STD deviation),URL"), lines[0])
	assert.Contains(t, lines[1], "1,Beam optics,Ada Lovelace,4.5,")
	assert.Contains(t, lines[1], ",2,4.5,0.5,https://indico.jacow.org/event/7/abstracts/5/")
	assert.Contains(t, lines[2], ",0,,,https://indico.jacow.org/event/7/abstracts/6/")

	// statistics are cached in Redis after the first call
	resp2, err := http.Get(ts.URL + "/event/7/manage/abstracts/statistics")
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.True(t, mr.Exists("jacow:abstract-stats:7"))
}
