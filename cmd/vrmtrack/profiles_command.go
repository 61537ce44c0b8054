package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/store"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage stored tuning profiles",
	}

	profilesCmd.AddCommand(newProfilesListCommand(ctx))
	profilesCmd.AddCommand(newProfilesShowCommand(ctx))
	profilesCmd.AddCommand(newProfilesActivateCommand(ctx))
	profilesCmd.AddCommand(newProfilesDeleteCommand(ctx))

	return profilesCmd
}

func activeProfile(st *store.Store) (string, error) {
	name, err := st.Settings().Get(store.KeyActiveProfile)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return name, err
}

func newProfilesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tuning profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				profiles, err := st.Profiles().List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(profiles) == 0 {
					fmt.Fprintln(out, "No profiles stored")
					return nil
				}

				active, err := activeProfile(st)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					rows = append(rows, []string{
						p.Name,
						strconv.Itoa(len(p.Bones)),
						formatOptional(p.GazeSmoothing),
						yesNo(p.Name == active),
						p.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Name", "Bones", "Gaze", "Active", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newProfilesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the bone overrides of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				p, err := st.Profiles().GetByName(args[0])
				if err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profile: %s\nGaze smoothing: %s\n", p.Name, formatOptional(p.GazeSmoothing))

				names := make([]string, 0, len(p.Bones))
				for bone := range p.Bones {
					names = append(names, string(bone))
				}
				sort.Strings(names)

				rows := make([][]string, 0, len(names))
				for _, n := range names {
					t := p.Bones[rig.BoneName(n)]
					rows = append(rows, []string{n, formatFloat(t.Dampener), formatFloat(t.Lerp)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Bone", "Dampener", "Lerp"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newProfilesActivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <name>",
		Short: "Make a profile the default for `vrmtrack run`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				p, err := st.Profiles().GetByName(args[0])
				if err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}
				if err := st.Settings().Set(store.KeyActiveProfile, p.Name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Activated profile %s\n", p.Name)
				return nil
			})
		},
	}
}

func newProfilesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				p, err := st.Profiles().GetByName(args[0])
				if err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}
				if err := st.Profiles().Delete(p.ID); err != nil {
					return err
				}
				if active, _ := activeProfile(st); active == p.Name {
					if err := st.Settings().Delete(store.KeyActiveProfile); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", p.Name)
				return nil
			})
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatOptional renders an unset profile value as inherited from config.
func formatOptional(v *float64) string {
	if v == nil {
		return "config"
	}
	return formatFloat(*v)
}
