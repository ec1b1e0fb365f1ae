package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/progress"
	"github.com/fatlib/fatlib/specialize"
)

func specializeCmd() *cobra.Command {
	var backendPath, target, flagList, outPath string
	var backendArgs []string

	cmd := &cobra.Command{
		Use:   "specialize ARTIFACT",
		Short: "Recompile an artifact's embedded IR for an exact target CPU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := artifact.Read(args[0])
			if err != nil {
				return err
			}

			opts := specialize.Options{Target: target, OutputPath: outPath}
			if flagList != "" {
				opts.Features = features.Parse(flagList)
			}

			eng := &specialize.Engine{
				Backend: &specialize.CommandBackend{Path: backendPath, Args: backendArgs},
			}

			spinner := progress.NewSpinner(os.Stderr, "specializing "+args[0])
			out, err := eng.Specialize(cmd.Context(), art, opts)
			spinner.Stop()
			if err != nil {
				return err
			}

			fmt.Printf("wrote %s (identity %s)\n", out.Path, out.Identity())
			return nil
		},
	}

	cmd.Flags().StringVar(&backendPath, "backend", "", "code generation backend executable")
	cmd.Flags().StringArrayVar(&backendArgs, "backend-arg", nil, "extra argument passed to the backend (repeatable)")
	cmd.Flags().StringVar(&target, "target", "host", `target spec: "host" or a feature list`)
	cmd.Flags().StringVar(&flagList, "features", "", "explicit feature set, overrides --target")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: conventional specialized location)")
	cmd.MarkFlagRequired("backend")
	return cmd
}
