package model

// Member represents one organization member whose site is synced.
type Member struct {
	Name       string `yaml:"name"`
	Username   string `yaml:"username"`
	ProfileURL string `yaml:"profile_url"`
	PostsPath  string `yaml:"posts_path"`
	Active     *bool  `yaml:"active"`
}

// IsActive reports whether the member should be synced. Members are
// active unless the config says otherwise.
func (m Member) IsActive() bool {
	return m.Active == nil || *m.Active
}

// SyncSettings holds the process-wide sync configuration.
type SyncSettings struct {
	MaxPostsPerMember int  `yaml:"max_posts_per_member"`
	AddAttribution    bool `yaml:"add_attribution"`
}

// RawPost is the result of fetching one post file from a member's site.
// It only lives for the duration of that member's fetch pass.
type RawPost struct {
	Text      string
	Filename  string
	SourceURL string
	RepoPath  string
}

// ParsedPost is a RawPost with its frontmatter split out and required
// fields defaulted.
type ParsedPost struct {
	Title      string
	Author     string
	Date       string
	Categories []string
	Body       string
	Filename   string
	SourceURL  string
	RepoPath   string

	// Frontmatter holds the full source frontmatter mapping, used by the
	// materializer to carry extra keys through.
	Frontmatter map[string]any

	// DateDefaulted marks a post whose date was absent upstream and filled
	// with the run timestamp.
	DateDefaulted bool
}

// MaterializedPost is the terminal artifact: a target path and the final
// file content to reconcile against disk.
type MaterializedPost struct {
	TargetPath string
	Content    string
}

// Report aggregates the reconciliation counts for one member.
type Report struct {
	Created int
	Updated int
	Skipped int
}
