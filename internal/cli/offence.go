package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jurimetrics/sentenza/internal/vocab"
)

// offenceCmd represents the offence command
var offenceCmd = &cobra.Command{
	Use:   "offence <code-or-term>",
	Short: "Look up offences in the controlled vocabulary",
	Long: `Offence resolves a statute reference or search term against the
controlled offence vocabulary. Exact references ("s. 266", "cc_266")
return one entry; anything else searches names and codes.

Example:
  sentenza offence "s. 271"
  sentenza offence cc_266
  sentenza offence assault`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOffence,
}

func init() {
	rootCmd.AddCommand(offenceCmd)
}

func runOffence(cmd *cobra.Command, args []string) error {
	term := strings.Join(args, " ")
	table := vocab.Default()

	if off, ok := table.Lookup(term); ok {
		fmt.Printf("%s  %s\n", off.Code, off.Name)
		return nil
	}

	matches := table.Search(term)
	if len(matches) == 0 {
		return fmt.Errorf("no offence matches %q (vocabulary holds %d entries)", term, table.Len())
	}
	for _, off := range matches {
		fmt.Printf("%s  %s\n", off.Code, off.Name)
	}
	return nil
}
