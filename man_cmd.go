package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to create man page: %w", err)
		}

		page = page.WithSection("Files", "Settings are read from drill.yml in the user config dir.\n"+
			"Progress is kept in progress.db in the user data dir.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
