package imageurl

import (
	"fmt"
)

// StrategyType represents the type of image URL strategy
type StrategyType string

const (
	StrategyTypeShopify     StrategyType = "shopify"
	StrategyTypeCDN         StrategyType = "cdn"
	StrategyTypePassthrough StrategyType = "passthrough"
)

// Config holds configuration for strategy creation
type Config struct {
	Type       StrategyType
	CDNBaseURL string // For CDN strategy
}

// NewStrategy creates an image URL strategy based on the configuration
func NewStrategy(config Config) (Strategy, error) {
	switch config.Type {
	case StrategyTypeShopify, "":
		return NewShopifyStrategy(), nil
	case StrategyTypeCDN:
		if config.CDNBaseURL == "" {
			return nil, fmt.Errorf("CDN base URL is required for CDN strategy")
		}
		s := NewCDNStrategy(config.CDNBaseURL)
		if s.base == nil {
			return nil, fmt.Errorf("invalid CDN base URL: %q", config.CDNBaseURL)
		}
		return s, nil
	case StrategyTypePassthrough:
		return NewPassthroughStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown image URL strategy type: %s", config.Type)
	}
}

// NewRecommendedStrategy picks a strategy for the environment
func NewRecommendedStrategy(environment, cdnURL string) Strategy {
	if environment == "production" && cdnURL != "" {
		if s := NewCDNStrategy(cdnURL); s.base != nil {
			return s
		}
	}
	return NewShopifyStrategy()
}
