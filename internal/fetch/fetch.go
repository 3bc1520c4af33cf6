// Package fetch retrieves raw post files from a member's GitHub Pages
// repository. The primary source is the contents API; when that is not
// usable it falls back to unauthenticated raw content with best-effort
// filename discovery.
package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"postsync/internal/github"
	"postsync/internal/model"
)

// PostExt is the file extension that marks a research post.
const PostExt = ".qmd"

// minPostLength separates real posts from directory-index placeholders on
// the raw fallback path. A readme converted to a post file is shorter.
const minPostLength = 100

// DefaultFallbackFilenames are tried on the raw path when no directory
// listing is available. A heuristic, not a protocol: override the field on
// Fetcher to change the candidate set.
var DefaultFallbackFilenames = []string{"test-post.qmd", "index.qmd"}

// Fetcher pulls post files for one member at a time. It never returns an
// error: every failure is logged and yields fewer (or zero) posts.
type Fetcher struct {
	Client            *github.Client
	FallbackFilenames []string

	log *slog.Logger
}

// New creates a Fetcher over the given client.
func New(client *github.Client, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		Client:            client,
		FallbackFilenames: DefaultFallbackFilenames,
		log:               log,
	}
}

// MemberPosts fetches all post files for a member, in listing order.
func (f *Fetcher) MemberPosts(ctx context.Context, m model.Member) []model.RawPost {
	f.log.Info("fetching posts", "username", m.Username)

	listURL := f.Client.ContentsURL(m.Username, m.PostsPath)
	resp := f.Client.Get(ctx, listURL)

	switch {
	case resp.OK():
		return f.fromListing(ctx, resp.Body, m)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		// Normal for members without a posts directory yet.
		f.log.Info("posts directory not found", "username", m.Username)
		return nil
	case resp != nil:
		f.log.Warn("contents API not usable, falling back to raw content",
			"username", m.Username, "status", resp.StatusCode)
		return f.fromRaw(ctx, m)
	default:
		f.log.Warn("no response from contents API, falling back to raw content",
			"username", m.Username)
		return f.fromRaw(ctx, m)
	}
}

// fromListing walks a contents API directory listing and fetches each post
// file through the API, decoding its base64 payload.
func (f *Fetcher) fromListing(ctx context.Context, listing []byte, m model.Member) []model.RawPost {
	entries, err := github.DecodeListing(listing)
	if err != nil {
		f.log.Warn("bad directory listing", "username", m.Username, "error", err)
		return nil
	}

	var posts []model.RawPost
	for _, entry := range entries {
		if entry.Type != "file" || !strings.HasSuffix(entry.Name, PostExt) {
			continue
		}

		resp := f.Client.Get(ctx, entry.URL)
		if !resp.OK() {
			f.log.Warn("could not fetch post content", "username", m.Username, "file", entry.Name)
			continue
		}
		text, err := github.DecodeFileContent(resp.Body)
		if err != nil {
			f.log.Warn("could not decode post content",
				"username", m.Username, "file", entry.Name, "error", err)
			continue
		}

		posts = append(posts, model.RawPost{
			Text:      text,
			Filename:  entry.Name,
			SourceURL: entry.HTMLURL,
			RepoPath:  entry.Path,
		})
	}
	return posts
}

// fromRaw fetches candidate filenames from raw.githubusercontent.com. The
// candidate set comes from a best-effort re-listing, else from the fixed
// fallback list.
func (f *Fetcher) fromRaw(ctx context.Context, m model.Member) []model.RawPost {
	filenames := f.discoverFilenames(ctx, m)

	var posts []model.RawPost
	for _, name := range filenames {
		rawURL := f.Client.RawURL(m.Username, m.PostsPath, name)
		resp := f.Client.Get(ctx, rawURL)
		if !resp.OK() {
			f.log.Debug("raw fetch miss", "username", m.Username, "file", name)
			continue
		}

		text := string(resp.Body)
		if isPlaceholder(name, text) {
			f.log.Debug("skipping directory index placeholder", "file", name)
			continue
		}

		posts = append(posts, model.RawPost{
			Text:      text,
			Filename:  name,
			SourceURL: github.BlobURL(m.Username, m.PostsPath, name),
			RepoPath:  strings.Trim(m.PostsPath, "/") + "/" + name,
		})
		f.log.Info("fetched via raw content", "username", m.Username, "file", name)
	}
	return posts
}

// discoverFilenames harvests post filenames from the contents API if it
// answers, else returns the fixed fallback candidates.
func (f *Fetcher) discoverFilenames(ctx context.Context, m model.Member) []string {
	resp := f.Client.Get(ctx, f.Client.ContentsURL(m.Username, m.PostsPath))
	if resp.OK() {
		if entries, err := github.DecodeListing(resp.Body); err == nil {
			var names []string
			for _, entry := range entries {
				if entry.Type == "file" && strings.HasSuffix(entry.Name, PostExt) {
					names = append(names, entry.Name)
				}
			}
			f.log.Info("discovered post files via API listing",
				"username", m.Username, "count", len(names))
			return names
		}
	}

	f.log.Info("using fallback file discovery", "username", m.Username)
	return f.FallbackFilenames
}

// isPlaceholder flags short readme/index files that are repository
// furniture rather than posts.
func isPlaceholder(filename, text string) bool {
	base := strings.ToLower(strings.TrimSuffix(filename, path.Ext(filename)))
	if base != "readme" && base != "index" {
		return false
	}
	return len(strings.TrimSpace(text)) < minPostLength
}
