// Package netrun - non-core CLI example surface (spec.md §6's "One
// example program per task ... these are non-core")
//
// Loads a topology/weight file pair, runs one extract, and prints
// either a graph summary table or the extracted values, depending on
// the subcommand. Grounded on cmd/cmd.go's NewCLI/cobra.Command
// wiring and cmd/cmd_list.go's tablewriter rendering.
package netrun

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lattiml/lattice/engine"
	"github.com/lattiml/lattice/extractor"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

// NewCLI builds the netrun root command.
func NewCLI() *cobra.Command {
	root := &cobra.Command{
		Use:           "netrun",
		Short:         "Inspect and run compact inference graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newInspectCmd())
	root.AddCommand(newExtractCmd())

	return root
}

func loadNet(topoPath, weightsPath string) (*engine.Net, error) {
	topo, err := os.Open(topoPath)
	if err != nil {
		return nil, fmt.Errorf("netrun: opening topology: %w", err)
	}
	defer topo.Close()

	weights, err := os.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("netrun: opening weights: %w", err)
	}
	defer weights.Close()

	return engine.Load(topo, weights, option.Default())
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect TOPOLOGY WEIGHTS",
		Short: "Print a layer/blob summary table for a loaded graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := loadNet(args[0], args[1])
			if err != nil {
				return err
			}

			data := make([][]string, 0, len(net.Graph.Layers))
			for i, node := range net.Graph.Layers {
				l := node.Layer
				data = append(data, []string{
					fmt.Sprintf("%d", i),
					l.Type(),
					node.Name,
					fmt.Sprintf("%v", l.Bottoms()),
					fmt.Sprintf("%v", l.Tops()),
				})
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"#", "TYPE", "NAME", "BOTTOMS", "TOPS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()

			return nil
		},
	}
	return cmd
}

func newExtractCmd() *cobra.Command {
	var precision int
	var w, h, c int

	cmd := &cobra.Command{
		Use:   "extract TOPOLOGY WEIGHTS INPUT_BLOB OUTPUT_BLOB",
		Short: "Feed a zero-filled input of the given shape and dump one extracted blob",
		Long: "Image decoding is out of scope for this module (spec-level non-goal); " +
			"this command exists to exercise the graph end to end, so the input blob " +
			"is always a zero-filled --w/--h/--c tensor rather than real pixel data.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := loadNet(args[0], args[1])
			if err != nil {
				return err
			}

			in, err := tensor.CreateDims(3, w, h, 0, c, tensor.DTypeF32, tensor.Pack1, nil)
			if err != nil {
				return err
			}
			defer in.Release()
			if err := in.Fill(0); err != nil {
				return err
			}

			ext := extractor.New(net, option.Default())
			if err := ext.SetInput(args[2], in); err != nil {
				return err
			}

			out, err := ext.Extract(args[3])
			if err != nil {
				return err
			}
			defer out.Release()

			opts := tensor.DefaultDumpOptions()
			opts.Precision = precision
			fmt.Fprintln(cmd.OutOrStdout(), tensor.Dump(out, opts))
			return nil
		},
	}
	cmd.Flags().IntVar(&precision, "precision", tensor.DefaultDumpOptions().Precision, "decimal places to print")
	cmd.Flags().IntVar(&w, "w", 1, "input width")
	cmd.Flags().IntVar(&h, "h", 1, "input height")
	cmd.Flags().IntVar(&c, "c", 1, "input channels")
	return cmd
}
