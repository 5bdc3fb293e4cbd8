package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/class-scheduler/internal/scheduler"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulerctl",
		Short:         "Offline class timetable planner",
		Long:          "schedulerctl runs the timetable planner on a TOML scenario without a database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Validate a scenario and print the planned timetable as JSON",
		RunE:  runPlan,
	}
	plan.Flags().StringP("file", "f", "", "scenario TOML file")
	_ = plan.MarkFlagRequired("file")

	check := &cobra.Command{
		Use:   "check-slots",
		Short: "Check the time slot configuration of a scenario",
		RunE:  runCheckSlots,
	}
	check.Flags().StringP("file", "f", "", "scenario TOML file")
	_ = check.MarkFlagRequired("file")

	root.AddCommand(plan, check)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errBlocked = errors.New("scenario failed validation")

func runPlan(cmd *cobra.Command, args []string) error {
	sc, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}
	grammar, err := sc.Grammar()
	if err != nil {
		return err
	}

	opts := sc.options()
	validation := scheduler.Validate(scheduler.ValidationScope{
		Batches:        sc.batches(),
		Offerings:      sc.offerings(),
		Rooms:          sc.rooms(),
		PreferredRooms: opts.PreferredRooms,
	})
	if !validation.Valid {
		if err := writeJSON(cmd.OutOrStdout(), validation); err != nil {
			return err
		}
		return errBlocked
	}

	planner := scheduler.NewPlanner(grammar, sc.rooms(), opts)
	for _, u := range sc.Unavailable {
		day, err := scheduler.ParseWeekday(u.Day)
		if err != nil {
			return fmt.Errorf("unavailable window for %s: %w", u.TeacherID, err)
		}
		block, err := scheduler.NewTimeBlock(u.Start, u.End)
		if err != nil {
			return fmt.Errorf("unavailable window for %s: %w", u.TeacherID, err)
		}
		planner.BlockTeacher(u.TeacherID, day, block)
	}
	result := planner.Plan(scheduler.ExpandUnits(sc.offerings(), sc.durations()))

	return writeJSON(cmd.OutOrStdout(), struct {
		Warnings []string `json:"warnings,omitempty"`
		scheduler.Result
	}{Warnings: validation.Warnings, Result: result})
}

func runCheckSlots(cmd *cobra.Command, args []string) error {
	sc, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}
	grammar, err := sc.Grammar()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, shift := range scheduler.Shifts {
		for _, day := range grammar.WorkingDays(shift) {
			blocks, constraint := grammar.EffectiveBlocks(shift, day)
			if len(blocks) == 0 {
				continue
			}
			line := fmt.Sprintf("%-8s %-10s", shift, day)
			for _, b := range blocks {
				line += " " + b.String()
			}
			if constraint != "" {
				line += " (" + string(constraint) + " only)"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

func scenarioFromFlags(cmd *cobra.Command) (*Scenario, error) {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	return loadScenario(path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
