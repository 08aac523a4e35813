package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Routes lists page path prefixes. A protected page needs the auth cookie;
// public pages are reachable without it. A public prefix inside a protected
// one (e.g. /my-scans/shared under /my-scans) opens that subtree.
type Routes struct {
	Protected []string `yaml:"protected"`
	Public    []string `yaml:"public"`
}

func DefaultRoutes() Routes {
	return Routes{
		Protected: []string{
			"/dashboard",
			"/scan-file",
			"/my-scans",
			"/risk-reports",
			"/vulnerability-scan",
			"/attack-monitoring",
			"/data-poisoning",
			"/jailbreaks",
			"/prompt-hardening",
			"/hardening-tools",
			"/system-monitor",
		},
		Public: []string{
			"/landing",
			"/login",
			"/auth/google",
			"/auth/github",
			"/auth/success",
			"/auth/error",
		},
	}
}

// LoadRoutes reads a YAML routes file. An empty list in the file keeps the default.
func LoadRoutes(path string) (Routes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Routes{}, fmt.Errorf("reading routes file: %w", err)
	}

	var routes Routes
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return Routes{}, fmt.Errorf("parsing routes file %s: %w", path, err)
	}

	defaults := DefaultRoutes()
	if len(routes.Protected) == 0 {
		routes.Protected = defaults.Protected
	}
	if len(routes.Public) == 0 {
		routes.Public = defaults.Public
	}
	for _, p := range append(append([]string{}, routes.Protected...), routes.Public...) {
		if !strings.HasPrefix(p, "/") {
			return Routes{}, fmt.Errorf("route %q in %s must start with /", p, path)
		}
	}
	return routes, nil
}

// IsProtected reports whether path starts with a protected prefix.
func (r Routes) IsProtected(path string) bool {
	return hasAnyPrefix(path, r.Protected)
}

// RequiresAuth reports whether path is protected and not opened by a public
// prefix.
func (r Routes) RequiresAuth(path string) bool {
	return r.IsProtected(path) && !r.IsPublic(path)
}

func (r Routes) IsPublic(path string) bool {
	return hasAnyPrefix(path, r.Public)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
