package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/atc-simulations/pkg/config"
	"github.com/picogrid/atc-simulations/pkg/logger"
	"github.com/picogrid/atc-simulations/pkg/utils"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved parameter profiles",
	Long:  `Manage named parameter sets stored in $HOME/.atc-sim/profiles.yaml`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE:  listProfiles,
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new profile",
	RunE:  addProfile,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a profile",
	RunE:  removeProfile,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileRemoveCmd)
}

func formatParameters(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}

func listProfiles(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if len(profiles.Profiles) == 0 {
		logger.Info("No profiles configured")
		return nil
	}

	table := logger.NewTable("NAME", "SIMULATION", "PARAMETERS", "DESCRIPTION")
	for _, name := range profiles.Names() {
		p, _ := profiles.Find(name)
		table.AddRow(p.Name, p.Simulation, formatParameters(p.Parameters), p.Description)
	}
	table.Print()
	return nil
}

func addProfile(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}
	if len(simInfos) == 0 {
		return fmt.Errorf("no simulations found")
	}

	var profile config.Profile

	// Prompt for name
	namePrompt := &survey.Input{
		Message: "Profile name:",
	}
	if err := survey.AskOne(namePrompt, &profile.Name, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	// Check if name already exists
	if _, exists := profiles.Find(profile.Name); exists {
		return fmt.Errorf("profile %s already exists", profile.Name)
	}

	options := make([]string, len(simInfos))
	for i, info := range simInfos {
		options[i] = info.Config.Name
	}
	simPrompt := &survey.Select{
		Message: "Simulation:",
		Options: options,
	}
	if err := survey.AskOne(simPrompt, &profile.Simulation); err != nil {
		return err
	}

	descPrompt := &survey.Input{
		Message: "Description (optional):",
	}
	if err := survey.AskOne(descPrompt, &profile.Description); err != nil {
		return err
	}

	info, err := utils.FindSimulation(simInfos, profile.Simulation)
	if err != nil {
		return err
	}
	params, err := utils.PromptForParameters(info.Config.Parameters, nil)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}
	profile.Parameters = make(map[string]interface{}, len(params))
	for k, v := range params {
		// Durations are stored in their text form
		if d, ok := v.(time.Duration); ok {
			v = d.String()
		}
		profile.Parameters[k] = v
	}

	if err := profiles.Add(profile); err != nil {
		return err
	}

	// Save profiles
	if err := config.SaveProfiles(profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	logger.Successf("Profile %s added successfully", profile.Name)
	return nil
}

func removeProfile(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if len(profiles.Profiles) == 0 {
		logger.Info("No profiles to remove")
		return nil
	}

	// Prompt for selection
	var selected string
	prompt := &survey.Select{
		Message: "Select profile to remove:",
		Options: profiles.Names(),
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return err
	}

	// Confirm removal
	var confirm bool
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Are you sure you want to remove %s?", selected),
		Default: false,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		logger.Info("Removal cancelled")
		return nil
	}

	profiles.Remove(selected)

	// Save profiles
	if err := config.SaveProfiles(profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	logger.Successf("Profile %s removed successfully", selected)
	return nil
}
