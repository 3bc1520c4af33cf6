// Package post turns raw fetched files into materialized organization
// posts: the parser splits frontmatter from body and fills defaults, the
// materializer merges in the organization schema and serializes.
package post

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"postsync/internal/model"
)

// Ext is the post-file extension.
const Ext = ".qmd"

// delimiter marks the frontmatter block.
const delimiter = "---"

// Parse splits a raw post into frontmatter-derived fields and body. Missing
// fields fall back to filename- or member-derived defaults, with now used
// for an absent date. An unparseable frontmatter block returns an error and
// the post is dropped by the caller.
func Parse(raw model.RawPost, m model.Member, now time.Time) (*model.ParsedPost, error) {
	p := &model.ParsedPost{
		Filename:    raw.Filename,
		SourceURL:   raw.SourceURL,
		RepoPath:    raw.RepoPath,
		Frontmatter: map[string]any{},
	}

	if !strings.HasPrefix(raw.Text, delimiter) {
		// No frontmatter: the whole file is the body.
		return plainPost(p, raw.Text, m, now), nil
	}

	parts := strings.SplitN(raw.Text, delimiter, 3)
	if len(parts) < 3 {
		// A lone delimiter without a closing one: treat as plain body.
		return plainPost(p, raw.Text, m, now), nil
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter of %s: %w", raw.Filename, err)
	}
	if fm == nil {
		fm = map[string]any{}
	}

	p.Frontmatter = fm
	p.Body = strings.TrimSpace(parts[2])

	if title, ok := fm["title"]; ok {
		p.Title = asString(title)
	} else {
		p.Title = PrettyTitle(raw.Filename)
	}
	if author, ok := fm["author"]; ok {
		p.Author = asString(author)
	} else {
		p.Author = m.Name
	}
	if date, ok := fm["date"]; ok {
		p.Date = asString(date)
	} else {
		p.Date = now.Format(time.RFC3339)
		p.DateDefaulted = true
	}
	p.Categories = asStrings(fm["categories"])

	return p, nil
}

// EmbeddedDate extracts the date field from a materialized post's
// frontmatter. Used to keep defaulted dates stable across runs.
func EmbeddedDate(content string) (string, bool) {
	if !strings.HasPrefix(content, delimiter) {
		return "", false
	}
	parts := strings.SplitN(content, delimiter, 3)
	if len(parts) < 3 {
		return "", false
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return "", false
	}
	date, ok := fm["date"]
	if !ok {
		return "", false
	}
	return asString(date), true
}

// plainPost fills a post that has no usable frontmatter block.
func plainPost(p *model.ParsedPost, text string, m model.Member, now time.Time) *model.ParsedPost {
	p.Title = PrettyTitle(p.Filename)
	p.Author = m.Name
	p.Date = now.Format(time.RFC3339)
	p.DateDefaulted = true
	p.Categories = []string{"research"}
	p.Body = strings.TrimSpace(text)
	return p
}

// PrettyTitle derives a title from a post filename: extension stripped,
// separators to spaces, each word capitalized.
func PrettyTitle(filename string) string {
	name := strings.TrimSuffix(filename, Ext)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// asString renders a frontmatter scalar as text. YAML resolves bare dates
// to time.Time, which must round-trip as a stable string.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// asStrings coerces a frontmatter value to a list of strings. A bare
// scalar becomes a single-element list.
func asStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, asString(item))
		}
		return out
	case []string:
		return t
	default:
		return []string{asString(t)}
	}
}
