package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/compile"
)

// RunDiff compares the script compiled from a rule file against a
// previously deployed script.
func RunDiff(ruleFile, deployedFile string) error {
	if ruleFile == "" || deployedFile == "" {
		return fmt.Errorf("usage: stockade diff <rules.hcl> <deployed.sh>")
	}

	rs, err := loadRules(ruleFile)
	if err != nil {
		return err
	}
	generated := compile.Script(rs, clock.Now())

	deployedBytes, err := os.ReadFile(deployedFile)
	if err != nil {
		return fmt.Errorf("failed to read deployed script: %w", err)
	}

	// Strip volatile lines (generation timestamps) for a fair comparison.
	cleanGenerated := stripVolatile(generated)
	cleanDeployed := stripVolatile(string(deployedBytes))

	if cleanGenerated == cleanDeployed {
		fmt.Println("No changes detected.")
		return nil
	}

	fmt.Println("Rule file differs from deployed script:")

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(cleanDeployed),
		B:        difflib.SplitLines(cleanGenerated),
		FromFile: "Deployed",
		ToFile:   "Generated",
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	fmt.Print(text)

	return fmt.Errorf("rule file differs from deployed script")
}

// stripVolatile removes lines that change on every compilation.
func stripVolatile(script string) string {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(line, "# Generated:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
