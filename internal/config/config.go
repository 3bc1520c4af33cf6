package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"postsync/internal/model"
)

const (
	// DefaultPostsPath is where a member's site keeps research posts
	// unless the config says otherwise.
	DefaultPostsPath = "/research/posts"

	defaultMaxPostsPerMember = 50
)

// Config is the members configuration document, usually members.yml.
type Config struct {
	Members    []model.Member     `yaml:"members"`
	SyncConfig model.SyncSettings `yaml:"sync_config"`
}

// Load reads and validates the members configuration file. Any failure
// here is fatal to the run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Config{
		SyncConfig: model.SyncSettings{
			MaxPostsPerMember: defaultMaxPostsPerMember,
			AddAttribution:    true,
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	for i := range cfg.Members {
		m := &cfg.Members[i]
		if m.Username == "" || m.Name == "" || m.ProfileURL == "" {
			return nil, fmt.Errorf("member %d in %s is missing username, name or profile_url", i, path)
		}
		if m.PostsPath == "" {
			m.PostsPath = DefaultPostsPath
		}
	}
	if cfg.SyncConfig.MaxPostsPerMember <= 0 {
		cfg.SyncConfig.MaxPostsPerMember = defaultMaxPostsPerMember
	}

	return &cfg, nil
}
