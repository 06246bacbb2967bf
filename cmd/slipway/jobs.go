package slipway

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opnlabs/slipway/pkg/config"
)

type jobRow struct {
	Name      string   `json:"name"`
	OS        string   `json:"os,omitempty"`
	Env       string   `json:"env,omitempty"`
	Template  string   `json:"template"`
	DependsOn []string `json:"depends_on,omitempty"`
}

var jobsCmd = &cobra.Command{
	Use:   "jobs [path]",
	Short: "List the jobs a pipeline defines",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := pipelineArg(args)
		p, err := config.Load(path)
		if err != nil {
			if p == nil {
				log.Fatal(err)
			}
			log.Warn("pipeline has unrecognized fields, run slipway lint for details")
		}

		rows := make([]jobRow, 0, len(p.Jobs))
		for i := range p.Jobs {
			job := &p.Jobs[i]
			rows = append(rows, jobRow{
				Name:      job.Name().String(),
				OS:        job.Parameters.OS().String(),
				Env:       job.Parameters.Env(),
				Template:  job.Template.String(),
				DependsOn: job.DependsOn,
			})
		}

		if jsonOut {
			out, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(out))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tOS\tENV\tTEMPLATE\tDEPENDS ON")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.OS, r.Env, r.Template, strings.Join(r.DependsOn, ", "))
		}
		if err := w.Flush(); err != nil {
			log.Fatal(err)
		}
	},
}
