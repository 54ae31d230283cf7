package finder

import (
	"market-finder/internal/config"
	"market-finder/internal/distance"
	"market-finder/internal/optimizer"
	"market-finder/internal/strategy"
)

// ConfigFrom maps the service configuration onto a finder Config
func ConfigFrom(c *config.Config) Config {
	o := c.Optimizer
	return Config{
		Arbiter: strategy.Config{
			SmallThreshold:  c.Arbiter.SmallThreshold,
			ClusterRadiusKm: c.Arbiter.ClusterRadiusKm,
			Optimizer: optimizer.Config{
				PopulationSize:  o.PopulationSize,
				Generations:     o.Generations,
				CrossoverProb:   o.CrossoverProb,
				MutationProb:    o.MutationProb,
				TournamentSize:  o.TournamentSize,
				EliteSize:       o.EliteSize,
				StagnationLimit: o.StagnationLimit,
				Epsilon:         o.Epsilon,
				Workers:         o.Workers,
			},
			OptimizerRuns: o.Runs,
		},
		RouteConcurrency: c.OSRM.Concurrency,
		RouteTimeout:     c.OSRM.Timeout,
		MaxResults:       c.Arbiter.MaxResults,
		SearchTimeout:    c.Arbiter.Timeout,
	}
}

// RouteDistancerFrom returns the OSRM client when route refinement is
// enabled, nil otherwise. persist may be nil.
func RouteDistancerFrom(c *config.Config, persist distance.RouteStore) distance.RouteDistancer {
	if !c.OSRM.Enabled {
		return nil
	}
	client := distance.NewOSRMClient(distance.OSRMConfig{
		BaseURL:        c.OSRM.BaseURL,
		Timeout:        c.OSRM.Timeout,
		RateLimit:      c.OSRM.RateLimit,
		Burst:          c.OSRM.Burst,
		CacheTTL:       c.OSRM.CacheTTL,
		BreakerTimeout: c.OSRM.BreakerTimeout,
	})
	if persist != nil {
		client.WithStore(persist)
	}
	return client
}

// NewFromConfig builds a Finder from the service configuration
func NewFromConfig(c *config.Config, persist distance.RouteStore) *Finder {
	return New(ConfigFrom(c), RouteDistancerFrom(c, persist))
}
