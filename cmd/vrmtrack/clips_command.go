package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/vrmtrack/internal/clip"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clips",
		Short: "List built-in and configured clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lib := clip.NewLibrary()
			if err := lib.LoadBuiltIn(); err != nil {
				return err
			}
			if dir := cfg.Tracking.ClipsDir; dir != "" {
				if err := lib.LoadDir(dir); err != nil {
					return err
				}
			}

			names := lib.Names()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				c, err := lib.Get(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					c.Name,
					c.Duration.String(),
					strconv.Itoa(len(c.Keyframes)),
					c.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Duration", "Keyframes", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
