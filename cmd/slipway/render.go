package slipway

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opnlabs/slipway/pkg/config"
)

var renderCmd = &cobra.Command{
	Use:   "render [path]",
	Short: "Print the canonical form of a pipeline",
	Long: `Render parses a pipeline file and prints it back as canonical YAML with
fields in a stable order. JSON pipelines render as YAML too.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := pipelineArg(args)
		p, err := config.Load(path)
		if err != nil {
			if p == nil {
				log.Fatal(err)
			}
			log.Warn("pipeline has unrecognized fields, run slipway lint for details")
		}

		out, err := config.Marshal(p)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(string(out))
	},
}
