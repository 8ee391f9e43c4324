package extractor

import (
	"fmt"

	"bymarket/adradar/config"
	apperrors "bymarket/adradar/pkg/errors"
	"bymarket/adradar/services/cache"
)

// Registry resolves a platform identifier to its extractor instance.
type Registry struct {
	extractors map[Platform]Extractor
}

// NewRegistry builds the registry with one extractor per supported
// platform. The Kufar region table is loaded from the configured
// override file when one is set.
func NewRegistry(cfg config.Config, cacheSvc cache.CacheService) (*Registry, error) {
	regions, err := LoadRegionTable(cfg.KufarRegionsFile)
	if err != nil {
		return nil, fmt.Errorf("load region table: %w", err)
	}

	extractors := []Extractor{
		NewKufarExtractor(cfg, cacheSvc, regions),
		NewOnlinerExtractor(cfg, cacheSvc),
		NewOlxExtractor(cfg, cacheSvc),
	}

	registry := &Registry{extractors: make(map[Platform]Extractor, len(extractors))}
	for _, ext := range extractors {
		registry.extractors[ext.Platform()] = ext
	}
	return registry, nil
}

// Lookup resolves a platform to its extractor.
func (r *Registry) Lookup(platform Platform) (Extractor, bool) {
	ext, ok := r.extractors[platform]
	return ext, ok
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []Platform {
	platforms := make([]Platform, 0, len(r.extractors))
	for p := range r.extractors {
		platforms = append(platforms, p)
	}
	return platforms
}

// ClassifyQuery detects the platform behind a candidate query URL and
// validates that it is a search page. Used by the registration flow
// before a query is ever tracked.
func (r *Registry) ClassifyQuery(rawURL string) (Platform, error) {
	platform, ok := DetectPlatform(rawURL)
	if !ok {
		return "", apperrors.NewValidation("", "URL does not belong to a supported platform")
	}
	ext, ok := r.Lookup(platform)
	if !ok {
		return "", apperrors.NewValidation(string(platform), "platform has no extractor")
	}
	if !ext.ValidateURL(rawURL) {
		return "", apperrors.NewValidation(string(platform), "URL is not a search page")
	}
	return platform, nil
}
