package cmd

import (
	"fmt"
	"os"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/codec"
)

// RunExport serializes a rule file into the exchange document format.
func RunExport(ruleFile, output string) error {
	if ruleFile == "" {
		return fmt.Errorf("usage: stockade export [-o out.json] <rules.hcl>")
	}

	rs, err := loadRules(ruleFile)
	if err != nil {
		return err
	}

	data, err := codec.Encode(rs, clock.Now())
	if err != nil {
		return fmt.Errorf("failed to encode rule set: %w", err)
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	fmt.Printf("Exported %d rules to %s\n", len(rs), output)
	return nil
}
