// Command poolshark-siteid is the build-time front end for package siteid
// (spec §4.2): it assigns or looks up the persisted id for a discriminant
// declaration site, and carries a couple of debug subcommands for
// inspecting or resetting the persisted map.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/estokes/poolshark/siteid"
)

var (
	flagOutputDir string
	flagModule    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "poolshark-siteid",
		Short:        "Assign and inspect build-persisted discriminant site ids",
		SilenceUsage: true,
	}

	var pf *pflag.FlagSet = root.PersistentFlags()
	pf.StringVarP(&flagOutputDir, "dir", "d", "", "output directory holding the persisted id map (overrides "+siteid.EnvOutputDir+")")
	pf.StringVarP(&flagModule, "module", "m", "", "module name to record against this site (overrides "+siteid.EnvModule+")")

	root.AddCommand(newAssignCmd(), newInspectCmd(), newPruneCmd())
	return root
}

func applyOverrides() {
	if flagOutputDir != "" {
		siteid.SetOutputDir(flagOutputDir)
	}
	if flagModule != "" {
		siteid.SetModule(flagModule)
	}
}

func newAssignCmd() *cobra.Command {
	var file string
	var line int

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign or look up the id for a (module, file, line) site",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides()
			module, err := siteid.DiscoverModule()
			if err != nil {
				return err
			}
			id, err := siteid.Assign(siteid.Key{Module: module, File: file, Line: line})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&file, "file", "f", "", "source file of the call site")
	fl.IntVarP(&line, "line", "l", 0, "source line of the call site")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("line")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted key -> id map",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides()
			entries, err := siteid.Entries()
			if err != nil {
				return err
			}
			for key, id := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", key, id)
			}
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete the persisted id map (debug only: breaks the append-only stability guarantee, never run this against a real build)",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides()
			dir, err := siteid.DiscoverOutputDir()
			if err != nil {
				return err
			}
			path := dir + "/poolshark-siteid.map"
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			return nil
		},
	}
}
