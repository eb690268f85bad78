package cmd

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/stockade/internal/codec"
	"grimm.is/stockade/internal/config"
)

// RunImport decodes an exchange document and writes the accepted rules
// out as an HCL rule file.
func RunImport(args []string) error {
	var inputFile string
	var outputFile string

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.StringVar(&inputFile, "input", "", "Path to the exchange document")
	fs.StringVar(&outputFile, "output", "rules.hcl", "Output rule file")
	fs.Parse(args)

	if inputFile == "" {
		fs.Usage()
		return fmt.Errorf("--input is required")
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	result, err := codec.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("Accepted %d of %d rules\n", result.Accepted, result.Total)
	for _, reason := range result.Skipped {
		fmt.Printf("  skipped %s\n", reason)
	}

	if result.Accepted == 0 {
		return fmt.Errorf("document contained no valid rules")
	}

	if err := config.WriteFile(outputFile, config.BlocksFromRules(result.Rules)); err != nil {
		return err
	}
	fmt.Printf("Rule file written to %s\n", outputFile)
	return nil
}
