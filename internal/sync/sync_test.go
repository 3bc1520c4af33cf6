package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postsync/internal/fetch"
	"postsync/internal/github"
	"postsync/internal/model"
)

var alice = model.Member{
	Name:       "Alice A",
	Username:   "alice",
	ProfileURL: "https://github.com/alice",
	PostsPath:  "/research/posts",
}

var run1 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
var run2 = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// site simulates a member's GitHub Pages repo behind the contents API.
type site struct {
	files    map[string]string // filename → content
	requests int
}

func (s *site) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/alice.github.io/contents/research/posts",
		func(w http.ResponseWriter, r *http.Request) {
			s.requests++
			names := make([]string, 0, len(s.files))
			for name := range s.files {
				names = append(names, name)
			}
			sort.Strings(names)

			var entries []map[string]string
			for _, name := range names {
				entries = append(entries, map[string]string{
					"name":     name,
					"type":     "file",
					"path":     "research/posts/" + name,
					"url":      "http://" + r.Host + "/content/" + name,
					"html_url": "https://github.com/alice/alice.github.io/blob/main/research/posts/" + name,
				})
			}
			json.NewEncoder(w).Encode(entries)
		})
	mux.HandleFunc("/content/", func(w http.ResponseWriter, r *http.Request) {
		s.requests++
		name := strings.TrimPrefix(r.URL.Path, "/content/")
		content, ok := s.files[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString([]byte(content)),
		})
	})
	return mux
}

func newSyncer(t *testing.T, srvURL string, members []model.Member, settings model.SyncSettings) *Syncer {
	t.Helper()
	client := github.NewClient(testLogger())
	client.APIBase = srvURL
	client.RawBase = srvURL + "/raw"
	fetcher := fetch.New(client, testLogger())

	s := New(members, settings, fetcher, filepath.Join(t.TempDir(), "posts"), false, testLogger())
	s.Now = func() time.Time { return run1 }
	return s
}

func defaultSettings() model.SyncSettings {
	return model.SyncSettings{MaxPostsPerMember: 50, AddAttribution: true}
}

func TestSyncMember_Create(t *testing.T) {
	s := &site{files: map[string]string{
		"foo.qmd": "---\ntitle: Hi\ndate: \"2025-01-15\"\n---\n\nBody.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	syncer := newSyncer(t, srv.URL, []model.Member{alice}, defaultSettings())
	require.NoError(t, os.MkdirAll(syncer.PostsDir, 0o755))

	report, err := syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Report{Created: 1}, report)

	content, err := os.ReadFile(filepath.Join(syncer.PostsDir, "alice-foo.qmd"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "title: Hi")
	assert.Contains(t, string(content), "member-post")
	assert.Contains(t, string(content), "originally published by [Alice A]")
}

func TestSyncMember_IdempotentAcrossRuns(t *testing.T) {
	// One post carries no date, so its date gets defaulted at parse time.
	s := &site{files: map[string]string{
		"dated.qmd":   "---\ntitle: Dated\ndate: \"2025-01-15\"\n---\n\nBody.",
		"undated.qmd": "---\ntitle: Undated\n---\n\nBody.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	syncer := newSyncer(t, srv.URL, []model.Member{alice}, defaultSettings())
	require.NoError(t, os.MkdirAll(syncer.PostsDir, 0o755))

	report, err := syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Report{Created: 2}, report)

	// Second run at a later time: the defaulted date is pinned to the one
	// on disk, so nothing is rewritten.
	syncer.Now = func() time.Time { return run2 }
	report, err = syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Report{Skipped: 2}, report)

	content, err := os.ReadFile(filepath.Join(syncer.PostsDir, "alice-undated.qmd"))
	require.NoError(t, err)
	assert.Contains(t, string(content), run1.Format(time.RFC3339))
}

func TestSyncMember_UpdateOnUpstreamChange(t *testing.T) {
	s := &site{files: map[string]string{
		"foo.qmd": "---\ntitle: Hi\ndate: \"2025-01-15\"\n---\n\nFirst body.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	syncer := newSyncer(t, srv.URL, []model.Member{alice}, defaultSettings())
	require.NoError(t, os.MkdirAll(syncer.PostsDir, 0o755))

	_, err := syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)

	s.files["foo.qmd"] = "---\ntitle: Hi\ndate: \"2025-01-15\"\n---\n\nRevised body."
	report, err := syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Report{Updated: 1}, report)

	content, err := os.ReadFile(filepath.Join(syncer.PostsDir, "alice-foo.qmd"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Revised body.")
}

func TestSyncMember_CapKeepsFirstN(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"p1.qmd", "p2.qmd", "p3.qmd", "p4.qmd", "p5.qmd"} {
		files[name] = "---\ntitle: " + name + "\ndate: \"2025-01-01\"\n---\n\nBody."
	}
	s := &site{files: files}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	settings := defaultSettings()
	settings.MaxPostsPerMember = 2
	syncer := newSyncer(t, srv.URL, []model.Member{alice}, settings)
	require.NoError(t, os.MkdirAll(syncer.PostsDir, 0o755))

	report, err := syncer.syncMember(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Report{Created: 2}, report)

	assert.FileExists(t, filepath.Join(syncer.PostsDir, "alice-p1.qmd"))
	assert.FileExists(t, filepath.Join(syncer.PostsDir, "alice-p2.qmd"))
	assert.NoFileExists(t, filepath.Join(syncer.PostsDir, "alice-p3.qmd"))
}

func TestRun_InactiveMemberNotFetched(t *testing.T) {
	s := &site{files: map[string]string{
		"foo.qmd": "---\ntitle: Hi\n---\n\nBody.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	inactive := alice
	off := false
	inactive.Active = &off

	syncer := newSyncer(t, srv.URL, []model.Member{inactive}, defaultSettings())
	require.NoError(t, syncer.Run(context.Background(), ""))

	assert.Equal(t, 0, s.requests, "inactive members must not be fetched")
	entries, err := os.ReadDir(syncer.PostsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_UnknownMember(t *testing.T) {
	s := &site{files: map[string]string{}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	syncer := newSyncer(t, srv.URL, []model.Member{alice}, defaultSettings())
	require.NoError(t, syncer.Run(context.Background(), "ghost"))
	assert.Equal(t, 0, s.requests)
}

func TestRun_SingleMemberFilter(t *testing.T) {
	s := &site{files: map[string]string{
		"foo.qmd": "---\ntitle: Hi\ndate: \"2025-01-01\"\n---\n\nBody.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	bob := model.Member{Name: "Bob B", Username: "bob", ProfileURL: "https://github.com/bob", PostsPath: "/research/posts"}
	syncer := newSyncer(t, srv.URL, []model.Member{alice, bob}, defaultSettings())

	require.NoError(t, syncer.Run(context.Background(), "alice"))
	assert.FileExists(t, filepath.Join(syncer.PostsDir, "alice-foo.qmd"))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	s := &site{files: map[string]string{
		"foo.qmd": "---\ntitle: Hi\ndate: \"2025-01-01\"\n---\n\nBody.",
	}}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	syncer := newSyncer(t, srv.URL, []model.Member{alice}, defaultSettings())
	syncer.DryRun = true

	require.NoError(t, syncer.Run(context.Background(), ""))
	assert.NoDirExists(t, syncer.PostsDir, "dry run must not even create the posts directory")
}
