package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/app"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

var (
	cfg       config.Config
	log       *slog.Logger
	flagColl  string
	flagSpecs string
	flagSize  float64
)

var rootCmd = &cobra.Command{
	Use:           "featurevec",
	Short:         "Build POI feature vectors around coordinates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.FromEnv()
		if flagColl != "" {
			cfg.Collector = strings.ToLower(strings.TrimSpace(flagColl))
		}
		if flagSpecs != "" {
			cfg.FeatureSpecs = flagSpecs
		}
		if !cmd.Flags().Changed("size") {
			flagSize = cfg.BoxSizeKm
		}
		// logs go to stderr; stdout carries the vectors
		log = app.NewLogger(cfg, "featurevec", os.Stderr)
		observability.Init(nil, false)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagColl, "collector", "", "feature collector (overpass, wfs, redis); default from COLLECTOR")
	pf.StringVar(&flagSpecs, "specs", "", "comma separated specs such as amenity,amenity:school; default from FEATURE_SPECS")
	pf.Float64Var(&flagSize, "size", 2, "box side in km; default from BOX_SIZE_KM")
	rootCmd.AddCommand(vectorCmd, batchCmd, bboxCmd, specsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "featurevec:", err)
		os.Exit(1)
	}
}

// specsCmd prints the active schema, one label per line.
var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Print the active feature schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		specs, err := features.ParseSpecs(cfg.FeatureSpecs)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			specs = features.DefaultSpecs()
		}
		return printLabels(cmd.OutOrStdout(), specs)
	},
}

func printLabels(w io.Writer, specs []features.Spec) error {
	for _, s := range specs {
		if _, err := fmt.Fprintln(w, s.Label()); err != nil {
			return err
		}
	}
	return nil
}
