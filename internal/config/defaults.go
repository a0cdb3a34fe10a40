package config

// DefaultConfig returns the configuration used when scrolldoc.yml is
// absent or leaves fields unset.
func DefaultConfig() *Config {
	return &Config{
		Port:         8173,
		ContentDir:   "content",
		ManifestPath: "manifest.yml",
		DataDir:      ".scrolldoc",
		Environment:  EnvAuto,
		BasePath:     "",
		Origin:       "",
		Authoring:    false,
		Tracking: Tracking{
			ActivationThreshold:    0.4,
			ProximityMargin:        0.05,
			IntersectionThresholds: []float64{0, 0.25, 0.5, 0.75, 1},
			LockTTLMillis:          800,
			ScanIntervalMillis:     200,
		},
		Scenes: Scenes{
			ReleaseDistance: 2.0,
		},
	}
}
