package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/config"
	"github.com/tazlauanubianca/Crowdsensing/internal/simulation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario.yaml]",
		Short: "Check the configuration and a scenario without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath(cmd))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			path := cfg.Simulation.ScenarioFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok (no scenario to check)")
				return nil
			}

			sc, err := simulation.LoadScenario(path)
			if err != nil {
				return err
			}

			scripts := 0
			for _, r := range sc.Rounds {
				scripts += len(r.Scripts)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scenario %q ok: %d devices, %d rounds, %d script assignments per pass\n",
				sc.Name, len(sc.Devices), sc.TotalRounds(), scripts)
			return nil
		},
	}
}
