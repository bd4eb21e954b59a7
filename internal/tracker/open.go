package tracker

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/workplan/internal/config"
)

// Open returns the Source selected by cfg.Kind. The returned Closer releases
// any held connections and is never nil.
func Open(cfg config.TrackerConfig) (Source, io.Closer, error) {
	switch Kind(cfg.Kind) {
	case KindFile, "":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("tracker.file is required for the file tracker")
		}
		return NewFileSource(cfg.File), nopCloser{}, nil
	case KindAzure:
		src := NewAzureSource(AzureOptions{
			BaseURL:      cfg.Azure.BaseURL,
			Organization: cfg.Azure.Organization,
			Project:      cfg.Azure.Project,
			PAT:          cfg.Azure.PAT,
		})
		return src, src, nil
	case KindGitHub:
		return NewGitHubSource(cfg.GitHub.Repo, cfg.GitHub.Command), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown tracker kind %q", cfg.Kind)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
