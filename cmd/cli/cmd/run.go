package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/picogrid/atc-simulations/pkg/config"
	"github.com/picogrid/atc-simulations/pkg/logger"
	"github.com/picogrid/atc-simulations/pkg/simulation"
	"github.com/picogrid/atc-simulations/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/atc-simulations/cmd/airspace/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `Run a simulation interactively or with specified parameters.

While the simulation runs, type commands on stdin (start, pause, resume,
status, slow-all, swap-all, abort <id>, quit). When stdin is not a terminal
the simulation starts on its own and no prompts are shown.`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringP("simulation", "s", "", "simulation name to run")
	runCmd.Flags().StringP("params", "p", "", "parameters file (YAML)")
	runCmd.Flags().String("profile", "", "saved parameter profile to use")
	runCmd.Flags().String("config-file", "", "simulation config file (YAML)")
	runCmd.Flags().Bool("auto-start", false, "start dispatching without waiting for the start command")
	runCmd.Flags().Bool("progress", false, "show a progress bar instead of the event log")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && !utils.SkipPrompts()

	simName, err := selectSimulation(cmd, interactive)
	if err != nil {
		return fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return fmt.Errorf("failed to get simulation: %w", err)
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}
	simInfo, err := utils.FindSimulation(simInfos, simName)
	if err != nil {
		return err
	}

	presets, err := loadPresets(cmd, simName)
	if err != nil {
		return err
	}

	var params map[string]interface{}
	if interactive {
		params, err = utils.PromptForParameters(simInfo.Config.Parameters, presets)
	} else {
		params, err = utils.ResolveParameters(simInfo.Config.Parameters, presets)
	}
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	autoStart, _ := cmd.Flags().GetBool("auto-start")
	progress, _ := cmd.Flags().GetBool("progress")
	configFile, _ := cmd.Flags().GetString("config-file")
	params["auto_start"] = autoStart || !interactive
	params["progress"] = progress
	if configFile != "" {
		params["config_file"] = configFile
	}

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))

	g, gctx := errgroup.WithContext(ctx)
	consoleCtx, closeConsole := context.WithCancel(gctx)
	defer closeConsole()

	g.Go(func() error {
		defer closeConsole()
		if err := sim.Run(gctx); err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		return nil
	})

	if ctl, ok := sim.(simulation.Controllable); ok && interactive {
		g.Go(func() error {
			return runConsole(consoleCtx, ctl, os.Stdin, os.Stdout)
		})
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-finished:
		case <-ctx.Done():
			select {
			case <-finished:
				return
			default:
			}
			logger.Warn("Received interrupt signal, stopping simulation...")
			if err := sim.Stop(); err != nil {
				logger.Errorf("Failed to stop simulation: %v", err)
			}
		}
	}()

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Success("Simulation finished")
	return nil
}

// loadPresets merges a saved profile and a parameters file, the file winning
func loadPresets(cmd *cobra.Command, simName string) (map[string]interface{}, error) {
	presets := make(map[string]interface{})

	if name, _ := cmd.Flags().GetString("profile"); name != "" {
		profiles, err := config.LoadProfiles()
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		profile, ok := profiles.Find(name)
		if !ok {
			return nil, fmt.Errorf("profile %s not found", name)
		}
		if profile.Simulation != "" && profile.Simulation != simName {
			return nil, fmt.Errorf("profile %s is for simulation %s", name, profile.Simulation)
		}
		for k, v := range profile.Parameters {
			presets[k] = v
		}
		logger.Infof("Using profile %s", name)
	}

	if path, _ := cmd.Flags().GetString("params"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters file: %w", err)
		}
		fromFile := make(map[string]interface{})
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse parameters file: %w", err)
		}
		for k, v := range fromFile {
			presets[k] = v
		}
	}

	return presets, nil
}

func selectSimulation(cmd *cobra.Command, interactive bool) (string, error) {
	// Check if simulation is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return simName, nil
	}

	// Discover available simulations
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no simulations found")
	}
	if len(simInfos) == 1 || !interactive {
		return simInfos[0].Config.Name, nil
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select simulation:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
