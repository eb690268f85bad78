// Package cmd implements the stockade CLI subcommands.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/compile"
	"grimm.is/stockade/internal/config"
	"grimm.is/stockade/internal/rules"
)

// Version is the CLI version, overridable at build time.
var Version = "dev"

// RunCheck validates a rule file's syntax and field contents.
func RunCheck(ruleFile string, verbose bool) error {
	if ruleFile == "" {
		return fmt.Errorf("usage: stockade check [-v] <rules.hcl>")
	}

	rf, err := config.LoadFile(ruleFile)
	if err != nil {
		return fmt.Errorf("rule file invalid: %w", err)
	}

	rs, err := rf.Materialize(&clock.RealClock{})
	if err != nil {
		return fmt.Errorf("rule file invalid: %w", err)
	}

	enabled := 0
	for _, r := range rs {
		if r.Enabled {
			enabled++
		}
	}

	fmt.Println("Rule file valid!")
	fmt.Printf("Rules: %d (%d enabled)\n", len(rs), enabled)

	if verbose {
		fmt.Println()
		printSummary(rs)

		fmt.Println("\n--- Compiled Script ---")
		fmt.Println(compile.Script(rs, clock.Now()))
	}

	return nil
}

func printSummary(rs []rules.Rule) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tNAME\tACTION\tPROTOCOL\tSOURCE\tDESTINATION\tENABLED")
	for _, r := range rs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			r.Priority, r.Name, r.Action, r.Protocol,
			r.SourceAddress, r.DestinationAddress, r.Enabled)
	}
	w.Flush()
}
