// Package config handles loading and validating the simulator configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (CROWDSENSING_*)
//   - Validation of required fields
//   - Default value handling
//
// Every external sink (database, mqtt, influxdb, api) is disabled by default;
// a bare run only needs a scenario file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Simulation.ScenarioFile)
package config
