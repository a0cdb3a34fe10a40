// Package resolver turns a region's source template into the ordered list
// of candidate locations to try, based on the deployment environment.
//
// The same document can be opened straight from the filesystem, served by
// a local dev server, or hosted behind a sub-path prefix, and each of those
// needs a different path shape. Rather than scattering fallback lists
// across call sites, the shapes live here as one ordered rule table.
package resolver

import (
	"strings"

	"scrolldoc/internal/config"
)

// Resolver produces candidate lists for one deployment.
type Resolver struct {
	env      config.Environment
	basePath string
	origin   string
}

// New builds a resolver. An EnvAuto environment is pinned down from the
// origin and base path signals at construction time.
func New(env config.Environment, basePath, origin string) *Resolver {
	if env == config.EnvAuto {
		env = Detect(origin, basePath)
	}
	return &Resolver{env: env, basePath: normalizeBase(basePath), origin: strings.TrimSuffix(origin, "/")}
}

// Detect infers the deployment environment from its signals: a file
// origin means no server at all, a configured sub-path means a hosted
// deployment, anything else is treated as a local dev server.
func Detect(origin, basePath string) config.Environment {
	if strings.HasPrefix(origin, "file:") {
		return config.EnvLocalFile
	}
	if normalizeBase(basePath) != "" {
		return config.EnvHosted
	}
	return config.EnvDevServer
}

// Environment returns the resolved (post-detection) environment.
func (r *Resolver) Environment() config.Environment { return r.env }

// rule pairs an environment predicate with the candidate shapes it
// contributes. Rules run in order; matching rules contribute first, then
// the generic fallback set is appended regardless of environment.
type rule struct {
	name    string
	applies func(env config.Environment) bool
	build   func(r *Resolver, rel string) []string
}

var rules = []rule{
	{
		// No server: only relative paths can resolve.
		name:    "local-file",
		applies: func(env config.Environment) bool { return env == config.EnvLocalFile },
		build: func(r *Resolver, rel string) []string {
			return []string{"./" + rel, rel}
		},
	},
	{
		// Dev server serves the document root, so root-relative wins.
		name:    "dev-server",
		applies: func(env config.Environment) bool { return env == config.EnvDevServer },
		build: func(r *Resolver, rel string) []string {
			return []string{"/" + rel, rel}
		},
	},
	{
		// Hosted deployments need the sub-path prefix first.
		name:    "hosted",
		applies: func(env config.Environment) bool { return env == config.EnvHosted },
		build: func(r *Resolver, rel string) []string {
			out := []string{r.basePath + "/" + rel}
			if r.origin != "" {
				out = append(out, r.origin+r.basePath+"/"+rel)
			}
			return out
		},
	},
}

// Candidates returns the ordered, deduplicated candidate list for a
// source template. The returned slice is freshly allocated per call; a
// fetch attempt owns it outright.
func (r *Resolver) Candidates(sourceTemplate string) []string {
	rel := strings.TrimLeft(sourceTemplate, "/")

	var out []string
	for _, ru := range rules {
		if ru.applies(r.env) {
			out = append(out, ru.build(r, rel)...)
		}
	}

	// Generic fallback set, tried regardless of detected environment:
	// bare, root-relative, explicit-relative, sub-path-prefixed and
	// origin-qualified variants.
	out = append(out, rel, "/"+rel, "./"+rel)
	if r.basePath != "" {
		out = append(out, r.basePath+"/"+rel)
	}
	if r.origin != "" {
		out = append(out, r.origin+"/"+rel)
	}

	return dedupe(out)
}

// dedupe removes later duplicates while preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// normalizeBase ensures a non-empty base path has exactly one leading
// slash and no trailing slash.
func normalizeBase(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}
