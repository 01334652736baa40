// Package config loads catalog server and tool configuration. Default()
// gives a baseline, Load reads a JSON file over it and FromEnv overlays
// CATALOG_* environment variables.
//
//	cfg, err := config.Load("/etc/catalog.json")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg})
package config
