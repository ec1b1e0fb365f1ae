package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fatlib/fatlib/artifact"
	"github.com/fatlib/fatlib/features"
	"github.com/fatlib/fatlib/manifest"
)

// exportsFile is the JSON description of an artifact's export table,
// produced by the build driver that compiled the library.
type exportsFile struct {
	Exports []exportEntry `json:"exports"`
}

type exportEntry struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Symbol    string `json:"symbol"`
	Features  string `json:"features,omitempty"`
	Module    string `json:"module,omitempty"`
	Source    string `json:"source,omitempty"`
}

func packCmd() *cobra.Command {
	var imagePath, irPath, exportsPath, outPath string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Assemble a compiled library, its IR, and an export table into an artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}
			ir, err := os.ReadFile(irPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(exportsPath)
			if err != nil {
				return err
			}
			var exports exportsFile
			if err := json.Unmarshal(data, &exports); err != nil {
				return fmt.Errorf("parse %s: %w", exportsPath, err)
			}

			b := manifest.NewBuilder()
			for _, e := range exports.Exports {
				var prov map[string]any
				if e.Module != "" || e.Source != "" {
					prov = manifest.NewProvenance(e.Module, e.Source)
				}
				_, err := b.AddVariant(e.Name, manifest.Signature(e.Signature), e.Symbol, features.Parse(e.Features), prov)
				if err != nil {
					return err
				}
			}
			m, err := b.Finalize(ir)
			if err != nil {
				return err
			}

			a := &artifact.Artifact{Path: outPath, Manifest: m, Image: image}
			if err := artifact.Write(outPath, a); err != nil {
				return err
			}
			fmt.Printf("packed %s with identity %s\n", outPath, m.Identity())
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "compiled shared library to embed")
	cmd.Flags().StringVar(&irPath, "ir", "", "portable IR payload to embed")
	cmd.Flags().StringVar(&exportsPath, "exports", "", "JSON export table")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output artifact path")
	for _, f := range []string{"image", "ir", "exports", "out"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}
