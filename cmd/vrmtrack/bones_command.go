package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/vrmtrack/internal/app"
	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/store"
)

func newBonesCommand(ctx *commandContext) *cobra.Command {
	var onlyOverrides bool

	cmd := &cobra.Command{
		Use:   "bones",
		Short: "Show the effective dampener and lerp per bone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				opts, profile, err := app.EngineOptions(cfg, st)
				if err != nil {
					return err
				}
				engine := retarget.New(retarget.WithOptions(opts))
				defaults := retarget.DefaultTuning()

				rows := make([][]string, 0, len(rig.AllBones()))
				for _, bone := range rig.AllBones() {
					_, overridden := opts.Bones[bone]
					if onlyOverrides && !overridden {
						continue
					}
					t := engine.Tuning(bone)
					source := "default"
					if _, ok := defaults[bone]; !ok {
						source = "fallback"
					}
					if overridden {
						source = "override"
					}
					rows = append(rows, []string{string(bone), formatFloat(t.Dampener), formatFloat(t.Lerp), source})
				}

				out := cmd.OutOrStdout()
				if profile != "" {
					fmt.Fprintf(out, "Profile: %s\n", profile)
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Bone", "Dampener", "Lerp", "Source"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&onlyOverrides, "overrides", false, "Only list bones with overrides")
	return cmd
}
