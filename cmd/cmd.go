// Package cmd implements the fatlib command line: artifact inspection,
// host feature probing, out-of-band specialization, and staleness checks.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/discover"
	"github.com/fatlib/fatlib/dispatch"
	"github.com/fatlib/fatlib/format"
	"github.com/fatlib/fatlib/logutil"
	"github.com/fatlib/fatlib/version"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fatlib",
		Short:   "Package, inspect, and specialize multi-variant native libraries",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(os.Stderr, logutil.Level()))
		},
	}

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		packCmd(),
		inspectCmd(),
		featuresCmd(),
		specializeCmd(),
		verifyCmd(),
	)
	return rootCmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARTIFACT",
		Short: "Show an artifact's identity, sections, and export table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := artifact.Read(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("identity:    %s\n", a.Identity())
			fmt.Printf("specialized: %v\n", a.Specialized())
			fmt.Printf("image:       %s\n", format.HumanBytes(int64(len(a.Image))))
			fmt.Printf("ir:          %s\n", format.HumanBytes(int64(len(a.IR()))))
			fmt.Println()

			host := discover.Host()
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Signature", "Features", "Symbol", "Host"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, g := range a.Manifest.Groups() {
				selected := dispatch.Select(g, host)
				for _, v := range g.Variants {
					mark := ""
					if v == selected {
						mark = "*"
					}
					table.Append([]string{g.Name, string(g.Signature), v.Requires.String(), v.Symbol, mark})
				}
			}
			table.Render()
			return nil
		},
	}
}

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show the CPU features detected on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range discover.Host() {
				fmt.Println(f)
			}
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify ARTIFACT [SPECIALIZED]",
		Short: "Check that a specialized artifact matches its generic counterpart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			generic, err := artifact.Read(args[0])
			if err != nil {
				return err
			}
			spath := artifact.SpecializedPath(args[0])
			if len(args) == 2 {
				spath = args[1]
			}
			spec, err := artifact.Read(spath)
			if err != nil {
				return err
			}

			if spec.Identity() != generic.Identity() {
				return fmt.Errorf("identity mismatch: %s has %s, %s has %s",
					args[0], generic.Identity(), spath, spec.Identity())
			}
			fmt.Printf("ok: %s and %s share identity %s\n", args[0], spath, generic.Identity())
			return nil
		},
	}
}
