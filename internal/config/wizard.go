package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to scrolldoc.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to scrolldoc! Let's configure your document.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Content directory.
	contentPrompt := promptui.Prompt{
		Label:   "Content directory (one JSON file per region)",
		Default: cfg.ContentDir,
	}
	contentDir, err := contentPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	cfg.ContentDir = contentDir

	if _, err := os.Stat(contentDir); os.IsNotExist(err) {
		fmt.Printf("Note: %s does not exist yet; create it before serving.\n", contentDir)
	}

	// 2. Deployment environment.
	envPrompt := promptui.Select{
		Label: "How will the viewer be served?",
		Items: []string{
			"auto       — detect at startup",
			"local-file — opened straight from the filesystem",
			"dev-server — local development server",
			"hosted     — behind a sub-path prefix",
		},
	}
	envIdx, _, err := envPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("environment selection: %w", err)
	}
	envs := []Environment{EnvAuto, EnvLocalFile, EnvDevServer, EnvHosted}
	cfg.Environment = envs[envIdx]

	// 3. Sub-path prefix, only meaningful when hosted.
	if cfg.Environment == EnvHosted {
		basePrompt := promptui.Prompt{
			Label:   "Sub-path prefix (e.g. /docs)",
			Default: "/docs",
		}
		basePath, err := basePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("base path: %w", err)
		}
		cfg.BasePath = basePath
	}

	// 4. Port.
	portPrompt := promptui.Prompt{
		Label:   "Port to serve on",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 5. Authoring mode.
	authoringPrompt := promptui.Select{
		Label: "Enable authoring mode (cache-defeating fetches while editing content)?",
		Items: []string{"no", "yes"},
	}
	authoringIdx, _, err := authoringPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("authoring selection: %w", err)
	}
	cfg.Authoring = authoringIdx == 1

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save("scrolldoc.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration saved to scrolldoc.yml")
	return cfg, nil
}
