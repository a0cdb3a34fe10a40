package config

// Environment identifies how the viewer is being served, which controls
// the shape of the content path candidates the resolver produces.
type Environment string

const (
	// EnvAuto detects the environment from the serving context.
	EnvAuto Environment = "auto"
	// EnvLocalFile is a viewer opened straight from the filesystem,
	// with no server in front of the content directory.
	EnvLocalFile Environment = "local-file"
	// EnvDevServer is a local development server serving the content
	// directory from its root.
	EnvDevServer Environment = "dev-server"
	// EnvHosted is a deployment behind a sub-path prefix.
	EnvHosted Environment = "hosted"
)

// Config is the top-level scrolldoc configuration, corresponding to scrolldoc.yml.
type Config struct {
	Port         int         `yaml:"port" koanf:"port"`
	ContentDir   string      `yaml:"content_dir" koanf:"content_dir"`
	ManifestPath string      `yaml:"manifest" koanf:"manifest"`
	DataDir      string      `yaml:"data_dir" koanf:"data_dir"`
	Environment  Environment `yaml:"environment" koanf:"environment"`
	BasePath     string      `yaml:"base_path" koanf:"base_path"`
	Origin       string      `yaml:"origin" koanf:"origin"`
	Authoring    bool        `yaml:"authoring" koanf:"authoring"`
	AllowAll     bool        `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Tracking     Tracking    `yaml:"tracking" koanf:"tracking"`
	Scenes       Scenes      `yaml:"scenes" koanf:"scenes"`
}

// Tracking holds the visibility and navigation tuning knobs. The values
// vary per deployment, so they are configuration rather than constants.
type Tracking struct {
	// ActivationThreshold is the minimum visible-area fraction a region
	// must reach before it can become active.
	ActivationThreshold float64 `yaml:"activation_threshold" koanf:"activation_threshold"`
	// ProximityMargin widens the activation threshold downward for
	// prefetching: a region within the margin starts loading early.
	ProximityMargin float64 `yaml:"proximity_margin" koanf:"proximity_margin"`
	// IntersectionThresholds are the fraction crossings at which the
	// client reports visibility. A coarse set keeps callback volume low.
	IntersectionThresholds []float64 `yaml:"intersection_thresholds" koanf:"intersection_thresholds"`
	// LockTTLMillis bounds how long a navigation lock may suppress
	// visibility-driven activation if the completion signal is lost.
	LockTTLMillis int `yaml:"lock_ttl_ms" koanf:"lock_ttl_ms"`
	// ScanIntervalMillis throttles the fallback scroll-position scan.
	ScanIntervalMillis int `yaml:"scan_interval_ms" koanf:"scan_interval_ms"`
}

// Scenes holds visualization scene lifecycle tuning.
type Scenes struct {
	// ReleaseDistance is how many viewport heights away a region must be
	// before its scenes are disposed to bound memory use.
	ReleaseDistance float64 `yaml:"release_distance" koanf:"release_distance"`
}
