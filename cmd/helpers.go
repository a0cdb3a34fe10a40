package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"scrolldoc/internal/config"
	"scrolldoc/internal/content"
	"scrolldoc/internal/fetcher"
	"scrolldoc/internal/manifest"
	"scrolldoc/internal/resolver"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `scrolldoc init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadManifest reads the manifest file, falling back to discovering
// regions from the content directory when no manifest exists.
func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	if _, err := os.Stat(cfg.ManifestPath); err == nil {
		return manifest.Load(cfg.ManifestPath)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "no manifest at %s, discovering regions from %s\n", cfg.ManifestPath, cfg.ContentDir)
	}
	return manifest.Discover(cfg.ContentDir)
}

// buildFetcher assembles the candidate resolver and transport for the
// configured environment. Content on a remote origin goes over HTTP
// (with cache busting in authoring mode); everything else reads the
// local document root, the directory the content dir sits in.
func buildFetcher(cfg *config.Config) *fetcher.Fetcher {
	res := resolver.New(cfg.Environment, cfg.BasePath, cfg.Origin)

	var loader fetcher.Loader
	if cfg.Origin != "" {
		loader = &fetcher.HTTPLoader{Base: cfg.Origin, CacheBust: cfg.Authoring}
	} else {
		loader = &fetcher.FileLoader{Root: filepath.Dir(filepath.Clean(cfg.ContentDir))}
	}

	return fetcher.New(res, loader, content.NewRenderer())
}
