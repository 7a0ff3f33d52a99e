package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/profile"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newHintCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hint <kind> [payload]",
		Short: "Send a power hint",
		Long: "Send a power hint by name (interaction, launch, set_profile, ...) or number.\n" +
			"The payload defaults to 0, except set_profile which requires a profile id.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := hint.ParseKind(args[0])
			if err != nil {
				return err
			}

			var payload int32
			if len(args) == 1 && kind == hint.SetProfile {
				return errors.New().WithMessage(errors.ErrInvalidArgument, "set_profile needs a profile id payload")
			}
			if len(args) == 2 {
				payload, err = parsePayload(args[1])
				if err != nil {
					return err
				}
			}

			return a.client().Hint(cmd.Context(), kind, payload)
		},
	}
}

func newInteractiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive <on|off>",
		Short: "Signal an interactivity transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			return a.client().SetInteractive(cmd.Context(), on)
		},
	}
}

func newProfileCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <name|id>",
		Short: "Select a power profile",
		Long:  "Select one of: " + strings.Join(profileNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := profile.ParseID(args[0])
			if err != nil {
				return err
			}

			return a.client().SetProfile(cmd.Context(), id)
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's policy state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client().Status(cmd.Context())
			if err != nil {
				return err
			}

			switch output {
			case "yaml":
				encoder := yaml.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent(2)
				if err := encoder.Encode(status); err != nil {
					return err
				}
				return encoder.Close()
			case "text":
				writeStatus(cmd.OutOrStdout(), status)
				return nil
			default:
				return errors.New().WithData(errors.ErrInvalidArgument, output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, yaml)")

	return cmd
}

func newFeatureCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Query or set optional HAL features",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <feature>",
		Short: "Print a feature value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := power.ParseFeature(args[0])
			if err != nil {
				return err
			}

			value, err := a.client().GetFeature(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <feature> <value>",
		Short: "Set a feature value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := power.ParseFeature(args[0])
			if err != nil {
				return err
			}
			value, err := parsePayload(args[1])
			if err != nil {
				return err
			}

			return a.client().SetFeature(cmd.Context(), f, value)
		},
	})

	return cmd
}

func parsePayload(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, s)
	}
	return int32(n), nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}

	on, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New().WithData(errors.ErrInvalidArgument, s)
	}
	return on, nil
}

func profileNames() []string {
	all := profile.All()
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.ID.String())
	}
	return names
}

func writeStatus(w io.Writer, status power.Status) {
	fmt.Fprintf(w, "Profile:      %s (%d)\n", status.Profile, status.ProfileID)
	fmt.Fprintf(w, "Interactive:  %t\n", status.Interactive)
	fmt.Fprintf(w, "Interaction:  %s\n", status.Policy)
	fmt.Fprintf(w, "Max freq:     %d kHz (overclocked: %t)\n", status.Device.MaxFrequency, status.Device.Overclocked)
	fmt.Fprintf(w, "Hardware:     governor=%t cpuquiet=%t boost_sclk=%t\n",
		status.Device.Governor, status.Device.CPUQuiet, status.Device.BoostClock)

	for _, in := range status.Inputs {
		fmt.Fprintf(w, "Input:        %s (input%d)\n", in.Name, in.ID)
	}

	kinds := make([]string, 0, len(status.HintIntervals))
	for kind := range status.HintIntervals {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "Hint gate:    %s every %s\n", kind, status.HintIntervals[kind])
	}

	for _, floor := range status.Floors {
		fmt.Fprintf(w, "Floor:        %s = %d for %s\n", floor.Device, floor.Value, floor.Remaining)
	}

	if g := status.Governor; g != nil {
		fmt.Fprintf(w, "hispeed_freq: %d\n", g.HiSpeedFreq)
		fmt.Fprintf(w, "target_loads: %s\n", g.TargetLoads)
	}
}
