package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the engine cannot run with.
// Optimizer sizes outside their working ranges are clamped later, not rejected.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr must not be empty")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.OSRM.Enabled {
		u, err := url.Parse(c.OSRM.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("osrm.base_url is not a valid URL: %q", c.OSRM.BaseURL))
		}
		if c.OSRM.Timeout <= 0 {
			problems = append(problems, "osrm.timeout must be positive")
		}
		if c.OSRM.RateLimit <= 0 {
			problems = append(problems, "osrm.rate_limit must be positive")
		}
	}

	if c.Optimizer.CrossoverProb < 0 || c.Optimizer.CrossoverProb > 1 {
		problems = append(problems, "optimizer.crossover_prob must be in [0,1]")
	}
	if c.Optimizer.MutationProb < 0 || c.Optimizer.MutationProb > 1 {
		problems = append(problems, "optimizer.mutation_prob must be in [0,1]")
	}

	if c.Arbiter.MaxResults < 1 {
		problems = append(problems, "arbiter.max_results must be at least 1")
	}
	if c.Arbiter.ClusterRadiusKm <= 0 {
		problems = append(problems, "arbiter.cluster_radius_km must be positive")
	}
	if c.Arbiter.Timeout <= 0 {
		problems = append(problems, "arbiter.timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
