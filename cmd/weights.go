package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/merlin/internal/scorer"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print or check scoring weights",
}

var weightsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active weights as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("weights")
		w, err := loadWeights(path)
		if err != nil {
			return err
		}
		return printWeights(os.Stdout, w)
	},
}

var weightsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a weights file without scoring anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := scorer.LoadWeightsFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: ok (hash %s)\n", args[0], scorer.ConfigHash(w))
		return nil
	},
}

// printWeights writes w in the weights file layout, so the output can be
// edited and passed back with --weights.
func printWeights(out io.Writer, w scorer.Weights) error {
	fmt.Fprintf(out, "# hash: %s\n", scorer.ConfigHash(w))
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]scorer.Weights{"weights": w}); err != nil {
		return eris.Wrap(err, "encode weights")
	}
	return eris.Wrap(enc.Close(), "encode weights")
}

func init() {
	weightsShowCmd.Flags().String("weights", "", "YAML weights file (default from config)")
	weightsCmd.AddCommand(weightsShowCmd)
	weightsCmd.AddCommand(weightsValidateCmd)
	rootCmd.AddCommand(weightsCmd)
}
