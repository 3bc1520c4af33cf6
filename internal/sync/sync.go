// Package sync drives the full synchronization run: it iterates the
// configured members, pushes each one through fetch/parse/materialize, and
// reconciles the results against the local posts directory. A failure in
// one member or one post never aborts the rest of the run.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postsync/internal/fetch"
	"postsync/internal/model"
	"postsync/internal/post"
)

// Syncer runs the sync for a configured member set.
type Syncer struct {
	Members  []model.Member
	Settings model.SyncSettings
	Fetcher  *fetch.Fetcher
	PostsDir string
	DryRun   bool

	// Now stamps defaulted dates; injectable for tests.
	Now func() time.Time

	log *slog.Logger
}

// New creates a Syncer writing to postsDir.
func New(members []model.Member, settings model.SyncSettings, fetcher *fetch.Fetcher, postsDir string, dryRun bool, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{
		Members:  members,
		Settings: settings,
		Fetcher:  fetcher,
		PostsDir: postsDir,
		DryRun:   dryRun,
		Now:      time.Now,
		log:      log,
	}
}

// Run syncs all configured members, or only the one matching username when
// it is non-empty. It returns an error only when the posts directory cannot
// be created; everything else is logged and absorbed.
func (s *Syncer) Run(ctx context.Context, username string) error {
	members := s.Members
	if username != "" {
		members = nil
		for _, m := range s.Members {
			if m.Username == username {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			s.log.Error("member not found in configuration", "username", username)
			return nil
		}
	}

	var active []model.Member
	for _, m := range members {
		if m.IsActive() {
			active = append(active, m)
		}
	}

	s.log.Info("syncing posts", "active_members", len(active))

	if !s.DryRun {
		if err := os.MkdirAll(s.PostsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create posts directory %s: %w", s.PostsDir, err)
		}
	}

	for _, m := range active {
		report, err := s.syncMember(ctx, m)
		if err != nil {
			s.log.Error("error syncing posts for member", "username", m.Username, "error", err)
			continue
		}
		if !s.DryRun {
			s.log.Info("sync completed for member", "username", m.Username,
				"created", report.Created, "updated", report.Updated, "skipped", report.Skipped)
		}
	}
	return nil
}

// syncMember fetches, parses, caps, and reconciles one member's posts.
func (s *Syncer) syncMember(ctx context.Context, m model.Member) (model.Report, error) {
	var report model.Report

	raws := s.Fetcher.MemberPosts(ctx, m)
	s.log.Info("found posts", "username", m.Username, "count", len(raws))
	if len(raws) == 0 {
		return report, nil
	}

	now := s.Now()
	var posts []*model.ParsedPost
	for _, raw := range raws {
		p, err := post.Parse(raw, m, now)
		if err != nil {
			s.log.Error("error parsing post", "username", m.Username, "file", raw.Filename, "error", err)
			continue
		}
		posts = append(posts, p)
	}

	if len(posts) > s.Settings.MaxPostsPerMember {
		s.log.Info("limiting posts for member",
			"username", m.Username, "max", s.Settings.MaxPostsPerMember)
		posts = posts[:s.Settings.MaxPostsPerMember]
	}

	for _, p := range posts {
		if err := s.reconcile(p, m, &report); err != nil {
			s.log.Error("error processing post", "username", m.Username, "file", p.Filename, "error", err)
			continue
		}
	}
	return report, nil
}

// reconcile materializes one post and brings the local file in line with
// it: create when absent, overwrite when changed, skip when equal.
func (s *Syncer) reconcile(p *model.ParsedPost, m model.Member, report *model.Report) error {
	targetPath := filepath.Join(s.PostsDir, post.TargetFilename(m.Username, p.Filename))

	existing, readErr := os.ReadFile(targetPath)
	exists := readErr == nil

	// A date defaulted at parse time would differ every run and force a
	// spurious rewrite; pin it to the date already on disk.
	if p.DateDefaulted && exists {
		if date, ok := post.EmbeddedDate(string(existing)); ok {
			p.Date = date
			p.DateDefaulted = false
		}
	}

	mat, err := post.Materialize(p, m, s.Settings, s.PostsDir)
	if err != nil {
		return err
	}

	if s.DryRun {
		s.log.Info("[dry run] would create/update", "path", mat.TargetPath)
		s.log.Debug("[dry run] content preview", "preview", preview(mat.Content))
		return nil
	}

	if exists {
		if strings.TrimSpace(string(existing)) == strings.TrimSpace(mat.Content) {
			s.log.Debug("no changes detected", "path", mat.TargetPath)
			report.Skipped++
			return nil
		}
		s.log.Info("updating existing post", "path", mat.TargetPath)
		report.Updated++
	} else {
		s.log.Info("creating new post", "path", mat.TargetPath)
		report.Created++
	}

	if err := os.WriteFile(mat.TargetPath, []byte(mat.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", mat.TargetPath, err)
	}
	return nil
}

func preview(content string) string {
	const max = 200
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
