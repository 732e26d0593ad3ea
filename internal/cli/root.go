package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command of the eagerorm CLI.
func NewRootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eagerorm",
		Short: "eagerorm - model definitions for the eagerorm ORM",
		Long: `Generate orm.Def declarations, relation wiring and model decoders
from Go structs tagged with db and rel tags.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewGenCommand())
	cmd.AddCommand(NewVersionCommand(version))

	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("eagerorm", version)
		},
	}
}
