package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tazlauanubianca/Crowdsensing/internal/api"
	"github.com/tazlauanubianca/Crowdsensing/internal/history"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/config"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/database"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/influxdb"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/logging"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/mqtt"
	"github.com/tazlauanubianca/Crowdsensing/internal/simulation"
	"github.com/tazlauanubianca/Crowdsensing/migrations"
)

// runOptions are the command-line overrides of the run command.
type runOptions struct {
	configPath string
	scenario   string
	workers    int
	retain     bool
	roundDelay time.Duration
	runID      string
	serve      bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scenario to completion",
		Long: `Run plays every round of a scenario and prints the final readings.

The scenario file comes from the argument or simulation.scenario_file.
Enabled sinks (database, mqtt, influxdb, api) receive every completed round.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = getConfigPath(cmd)
			if len(args) == 1 {
				opts.scenario = args[0]
			}
			return runSimulation(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker goroutines per device (overrides config)")
	cmd.Flags().BoolVar(&opts.retain, "retain-scripts", false, "Re-run every assigned script in later rounds")
	cmd.Flags().DurationVar(&opts.roundDelay, "round-delay", 0, "Pause between rounds (overrides config)")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run identifier (default random)")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Keep the API running after the run until interrupted")
	return cmd
}

// applyOverrides folds command-line flags into cfg.
func (o runOptions) applyOverrides(cfg *config.Config) {
	if o.scenario != "" {
		cfg.Simulation.ScenarioFile = o.scenario
	}
	if o.workers > 0 {
		cfg.Simulation.WorkersPerDevice = o.workers
	}
	if o.retain {
		cfg.Simulation.RetainScripts = true
	}
	if o.roundDelay > 0 {
		cfg.Simulation.RoundDelay = int(o.roundDelay / time.Millisecond)
	}
}

// runSimulation is the run command's logic, separated for testability.
// It returns nil on completion or interruption, and an error on failure.
func runSimulation(ctx context.Context, opts runOptions, out io.Writer) error { //nolint:gocognit,gocyclo // sequential wiring of optional sinks
	log := logging.Default()
	log.Info("starting crowdsensing",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Simulation.ScenarioFile == "" {
		return errors.New("no scenario: pass a file or set simulation.scenario_file")
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", opts.configPath)

	sc, err := simulation.LoadScenario(cfg.Simulation.ScenarioFile)
	if err != nil {
		return err
	}

	observers := []simulation.Observer{simulation.LogObserver{Logger: log}}

	// Round history (optional)
	var repo history.Repository
	if cfg.Database.Enabled {
		db, err := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx, migrations.Source()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		repo = history.NewSQLiteRepository(db.DB)
		observers = append(observers, simulation.HistoryObserver{Repo: repo})
	}

	// MQTT publishing (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		observers = append(observers, simulation.MQTTObserver{Client: mqttClient, PerDevice: true})
	}

	// InfluxDB metrics (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		observers = append(observers, simulation.MetricsObserver{Writer: influxClient})
	}

	// Inspection API (optional)
	var server *api.Server
	if cfg.API.Enabled {
		server, err = api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			History: repo,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		observers = append(observers, server.Hub())
	}

	sim, err := simulation.New(sc, simulation.Options{
		Workers:       cfg.Simulation.WorkersPerDevice,
		RetainScripts: cfg.Simulation.RetainScripts,
		RoundDelay:    cfg.GetRoundDelay(),
		RunID:         opts.runID,
		Logger:        log,
		Observers:     observers,
	})
	if err != nil {
		return err
	}
	if server != nil {
		server.SetRun(sim)
	}

	if err := sim.Start(ctx); err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}

	// Devices watch ctx themselves, so the run always ends.
	<-sim.Done()
	runErr := sim.Shutdown()

	switch {
	case runErr == nil:
		printSummary(out, sim)
	case ctx.Err() != nil && errors.Is(runErr, ctx.Err()):
		log.Info("simulation interrupted", "run_id", sim.RunID(), "rounds", len(sim.Rounds()))
		return nil
	default:
		return fmt.Errorf("run %s: %w", sim.RunID(), runErr)
	}

	if opts.serve && server != nil {
		log.Info("serving results until interrupted", "address", server.Addr())
		<-ctx.Done()
	}
	return nil
}

// printSummary writes the final readings of every device.
func printSummary(out io.Writer, sim *simulation.Simulation) {
	fmt.Fprintf(out, "run %s: scenario %q, %d rounds\n", sim.RunID(), sim.Scenario().Name, len(sim.Rounds()))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tLOCATION\tVALUE")
	for _, st := range sim.DeviceStates() {
		if len(st.Readings) == 0 {
			fmt.Fprintf(tw, "%d\t-\t-\n", st.ID)
			continue
		}
		for _, r := range st.Readings {
			fmt.Fprintf(tw, "%d\t%d\t%g\n", st.ID, r.Location, r.Value)
		}
	}
	tw.Flush() //nolint:errcheck // Best-effort terminal output
}
