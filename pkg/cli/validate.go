package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

var validateQuiet bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a stubs file without starting the servers",
	Long: `Parse a stubs file and every file it includes, check it against the
configuration schema and print the stubs and proxy configs it declares.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := config.NewParser(config.WithLogger(logging.Nop()))
		res, err := p.ParseFile(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if !validateQuiet {
			printStubs(w, res.Collection)
			printProxies(w, res.Collection)
		}
		fmt.Fprintf(w, "%s is valid: %d stubs, %d proxy configs, %d files\n",
			args[0], len(res.Collection.Stubs), len(res.Collection.Proxies), len(res.Files))
		return nil
	},
}

func printStubs(w io.Writer, c *stub.Collection) {
	if len(c.Stubs) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Index", "UUID", "Methods", "URL", "Responses"})
	for i, l := range c.Stubs {
		t.AppendRow(table.Row{i, l.UUID(), strings.Join(l.Request().Methods(), ","), l.Request().URL(), len(l.Responses())})
	}
	t.Render()
}

func printProxies(w io.Writer, c *stub.Collection) {
	if len(c.Proxies) == 0 {
		return
	}
	ids := make([]string, 0, len(c.Proxies))
	for id := range c.Proxies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Proxy UUID", "Strategy", "Endpoint"})
	for _, id := range ids {
		pc := c.Proxies[id]
		t.AppendRow(table.Row{pc.UUID, pc.Strategy, pc.Endpoint})
	}
	t.Render()
}

func init() {
	validateCmd.Flags().BoolVarP(&validateQuiet, "quiet", "q", false, "Only print the summary line")
	rootCmd.AddCommand(validateCmd)
}
