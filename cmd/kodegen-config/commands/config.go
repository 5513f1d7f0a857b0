package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cyrup-ai/kodegen-tools-config/pkg/mcpserver/configtools"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

var (
	outputFormat string
	queryFilter  string
)

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the configuration or a single value",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. The value is parsed as JSON when possible,
so 2000, true and '["rm","sudo"]' become a number, a boolean and an array;
anything else is stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List clients that have connected",
	Args:  cobra.NoArgs,
	RunE:  runClients,
}

func init() {
	for _, cmd := range []*cobra.Command{getCmd, clientsCmd} {
		cmd.Flags().StringVarP(&outputFormat, "output", "o", formatText, "Output format (text|json|yaml|toml)")
	}
	getCmd.Flags().StringVarP(&queryFilter, "query", "q", "", "jq filter applied to the JSON form before output")
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	keyColor    = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
)

func runGet(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeManager(m)

	out := cmd.OutOrStdout()

	var (
		data any
		text func(io.Writer) error
	)
	if len(args) == 0 {
		cfg := m.Config()
		data = cfg
		text = func(w io.Writer) error { return printSummary(w, cfg) }
	} else {
		key := args[0]
		value, ok := m.Value(key)
		if !ok {
			return m.Registry().UnknownKeyError(key, m.FuzzySearchThreshold())
		}
		data = map[string]any{key: value.Interface()}
		text = func(w io.Writer) error { return printValue(w, value) }
	}

	if queryFilter != "" {
		result, err := runQuery(cmd.Context(), queryFilter, data)
		if err != nil {
			return err
		}
		data, text = result, nil
	}

	return render(out, outputFormat, data, text)
}

func runSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	value := parseValue(raw)

	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeManager(m)

	if err := m.SetValue(key, value); err != nil {
		return err
	}

	stored, _ := m.Value(key)
	okColor.Fprint(cmd.OutOrStdout(), "updated ")
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, stored)
	return nil
}

func runClients(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeManager(m)

	history := m.ClientHistory()
	current := m.ClientInfo()

	data := map[string]any{"clients": history}
	if current != nil {
		data["current"] = current
	}

	return render(cmd.OutOrStdout(), outputFormat, data, func(w io.Writer) error {
		return printClients(w, history, current)
	})
}

// parseValue reads raw as a JSON config value, falling back to a string.
func parseValue(raw string) types.ConfigValue {
	var v types.ConfigValue
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return types.StringValue(raw)
}

func printSummary(w io.Writer, cfg types.ServerConfig) error {
	headerColor.Fprintln(w, "kodegen config")
	_, err := fmt.Fprintln(w, configtools.Summary(cfg))
	return err
}

func printValue(w io.Writer, v types.ConfigValue) error {
	if s, ok := v.AsString(); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	if items, ok := v.AsArray(); ok {
		for _, item := range items {
			if _, err := fmt.Fprintln(w, item); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(w, v.String())
	return err
}

func printClients(w io.Writer, history []types.ClientRecord, current *types.ClientInfo) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "no clients recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headerColor.Fprintln(tw, "NAME\tVERSION\tFIRST SEEN\tLAST SEEN\t")
	for _, rec := range history {
		marker := ""
		if current != nil && rec.Matches(*current) {
			marker = keyColor.Sprint("(current)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.ClientInfo.Name,
			rec.ClientInfo.Version,
			rec.ConnectedAt.Format("2006-01-02 15:04:05"),
			rec.LastSeen.Format("2006-01-02 15:04:05"),
			marker)
	}
	return tw.Flush()
}
