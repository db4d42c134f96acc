package collector

import (
	"fmt"

	"github.com/qepting91/reddit-hot-comments/internal/config"
	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

// NewCollector selects the correct implementation based on the MODE
func NewCollector(cfg *config.Config) (domain.Collector, error) {
	switch cfg.CollectorMode {
	case "api":
		return NewAPIClient(Credentials{
			ID:       cfg.ClientID,
			Secret:   cfg.ClientSecret,
			Username: cfg.Username,
			Password: cfg.Password,
		}, cfg.UserAgent, cfg.BaseURL, cfg.ListingTimeout, cfg.CommentsTimeout)
	case "public":
		return NewPublicClient(cfg.BaseURL, cfg.UserAgent, cfg.ListingTimeout, cfg.CommentsTimeout)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'api', 'public', or 'mock')", cfg.CollectorMode)
	}
}
