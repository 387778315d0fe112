package sources

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds optional per-platform overrides read from a YAML file.
// Zero values mean "keep the client default".
type Settings struct {
	X       PlatformSettings `yaml:"x"`
	YouTube PlatformSettings `yaml:"youtube"`
}

type PlatformSettings struct {
	Enabled    *bool  `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Query      string `yaml:"query"`
	MaxResults int    `yaml:"max_results"`
}

func (s PlatformSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadSettings reads path. An empty path yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{}
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	slog.Debug("Sources settings loaded", "path", path,
		"x_enabled", settings.X.IsEnabled(), "youtube_enabled", settings.YouTube.IsEnabled())

	return settings, nil
}

func (s *Settings) validate() error {
	// The recent-search endpoint accepts 10..100, search.list accepts 0..50.
	if n := s.X.MaxResults; n != 0 && (n < 10 || n > 100) {
		return fmt.Errorf("x.max_results must be between 10 and 100, got %d", n)
	}
	if n := s.YouTube.MaxResults; n < 0 || n > 50 {
		return fmt.Errorf("youtube.max_results must be between 1 and 50, got %d", n)
	}
	return nil
}
