// Command stockade compiles declarative network-access rule files
// into packet-filter scripts and portable rule set documents, and can
// serve the rule collection over an HTTP API.
package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/stockade/cmd"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("v", false, "Show the compiled script")
		checkFlags.Parse(os.Args[2:])
		err = cmd.RunCheck(checkFlags.Arg(0), *verbose)

	case "compile":
		compileFlags := flag.NewFlagSet("compile", flag.ExitOnError)
		output := compileFlags.String("o", "", "Write the script to a file instead of stdout")
		compileFlags.Parse(os.Args[2:])
		err = cmd.RunCompile(compileFlags.Arg(0), *output)

	case "export":
		exportFlags := flag.NewFlagSet("export", flag.ExitOnError)
		output := exportFlags.String("o", "", "Write the document to a file instead of stdout")
		exportFlags.Parse(os.Args[2:])
		err = cmd.RunExport(exportFlags.Arg(0), *output)

	case "import":
		err = cmd.RunImport(os.Args[2:])

	case "diff":
		diffFlags := flag.NewFlagSet("diff", flag.ExitOnError)
		diffFlags.Parse(os.Args[2:])
		err = cmd.RunDiff(diffFlags.Arg(0), diffFlags.Arg(1))

	case "serve":
		err = cmd.RunServe(os.Args[2:])

	case "version":
		fmt.Println(cmd.Version)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `stockade - network-access rule compiler

Usage:
  stockade check [-v] <rules.hcl>              Validate a rule file
  stockade compile [-o out.sh] <rules.hcl>     Compile to a firewall script
  stockade export [-o out.json] <rules.hcl>    Export as an exchange document
  stockade import -input doc.json [options]    Import an exchange document
  stockade diff <rules.hcl> <deployed.sh>      Diff compiled vs deployed script
  stockade serve [-listen :8484] [options]     Run the rule service API
  stockade version                             Print the version
`)
}
