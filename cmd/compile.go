package cmd

import (
	"fmt"
	"os"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/compile"
	"grimm.is/stockade/internal/config"
	"grimm.is/stockade/internal/rules"
)

// RunCompile compiles a rule file into a firewall script.
func RunCompile(ruleFile, output string) error {
	if ruleFile == "" {
		return fmt.Errorf("usage: stockade compile [-o out.sh] <rules.hcl>")
	}

	rs, err := loadRules(ruleFile)
	if err != nil {
		return err
	}

	script := compile.Script(rs, clock.Now())

	if output == "" {
		fmt.Print(script)
		return nil
	}
	if err := os.WriteFile(output, []byte(script), 0755); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	fmt.Printf("Script written to %s\n", output)
	return nil
}

// loadRules loads and materializes a rule file.
func loadRules(path string) ([]rules.Rule, error) {
	rf, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return rf.Materialize(&clock.RealClock{})
}
