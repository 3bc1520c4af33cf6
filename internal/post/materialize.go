package post

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"postsync/internal/model"
)

// memberCategory is present in every materialized post's categories.
const memberCategory = "member-post"

// attributionFormat takes the member's display name and profile URL.
const attributionFormat = "\n\n---\n\n*This post was originally published by" +
	" [%s](%s) and automatically synced to the McPherson Group website.*"

// mergeMode says how a source frontmatter field combines with the
// organization-required fields.
type mergeMode int

const (
	// modeRequired: the organization value wins over the source value.
	modeRequired mergeMode = iota
	// modeUnion: merged by order-preserving union with the source value.
	modeUnion
	// modeCarry: copied from the source only when not already set. This is
	// the mode for every field not listed in fieldPolicy.
	modeCarry
)

// fieldPolicy is the ordered merge policy: required fields are asserted
// before any source field is considered, categories are unioned rather
// than overwritten, everything else is carried through.
var fieldPolicy = map[string]mergeMode{
	"title":      modeRequired,
	"author":     modeRequired,
	"date":       modeRequired,
	"source":     modeRequired,
	"categories": modeUnion,
}

// TargetFilename is the local filename for a member's post: the source
// filename forced to the post extension and prefixed with the lowercased
// username, so files from different members can never collide.
func TargetFilename(username, filename string) string {
	if !strings.HasSuffix(filename, Ext) {
		filename += Ext
	}
	return strings.ToLower(username) + "-" + filename
}

// Materialize produces the final local file for a parsed post. The output
// is deterministic for a given input: re-running on unchanged upstream
// content yields byte-identical results.
func Materialize(p *model.ParsedPost, m model.Member, settings model.SyncSettings, postsDir string) (*model.MaterializedPost, error) {
	fm := map[string]any{
		"title":  p.Title,
		"author": p.Author,
		"date":   p.Date,
	}

	categories := append([]string(nil), p.Categories...)
	if !contains(categories, memberCategory) {
		categories = append(categories, memberCategory)
	}

	sourceURL := p.SourceURL
	if sourceURL == "" {
		sourceURL = m.ProfileURL
	}
	fm["source"] = map[string]string{
		"member":       m.Name,
		"username":     m.Username,
		"original_url": sourceURL,
		"github_path":  p.RepoPath,
	}

	for key, value := range p.Frontmatter {
		if mode, ok := fieldPolicy[key]; ok && mode != modeCarry {
			continue
		}
		if _, set := fm[key]; !set {
			fm[key] = value
		}
	}

	// Source categories are unioned in last, scalars coerced, first-seen
	// order kept, duplicates dropped.
	for _, cat := range asStrings(p.Frontmatter["categories"]) {
		if !contains(categories, cat) {
			categories = append(categories, cat)
		}
	}
	fm["categories"] = categories

	body := p.Body
	if settings.AddAttribution {
		body += fmt.Sprintf(attributionFormat, m.Name, m.ProfileURL)
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize frontmatter for %s: %w", p.Filename, err)
	}

	return &model.MaterializedPost{
		TargetPath: filepath.Join(postsDir, TargetFilename(m.Username, p.Filename)),
		Content:    fmt.Sprintf("---\n%s---\n\n%s", header, body),
	}, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
