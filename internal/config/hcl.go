package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// LoadFile reads and decodes an HCL rule file.
func LoadFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes decodes an HCL rule file from memory. The filename is only
// used in diagnostics.
func LoadBytes(filename string, data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := hclsimple.Decode(filename, data, nil, &rf); err != nil {
		return nil, fmt.Errorf("failed to decode rule file: %w", err)
	}
	return &rf, nil
}

// Render serializes a rule collection to HCL source. Used by the
// importer to write decoded exchange documents back out as a rule
// file. Zero values and empty optionals are omitted so the result
// reads like a hand-written file.
func Render(blocks []RuleBlock) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	for i, b := range blocks {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("rule", []string{b.Name})
		bb := block.Body()

		bb.SetAttributeValue("action", cty.StringVal(b.Action))
		bb.SetAttributeValue("protocol", cty.StringVal(b.Protocol))
		bb.SetAttributeValue("source", cty.StringVal(b.Source))
		bb.SetAttributeValue("destination", cty.StringVal(b.Destination))
		if b.SourcePort != "" {
			bb.SetAttributeValue("source_port", cty.StringVal(b.SourcePort))
		}
		if b.DestPort != "" {
			bb.SetAttributeValue("dest_port", cty.StringVal(b.DestPort))
		}
		if b.Priority != 0 {
			bb.SetAttributeValue("priority", cty.NumberIntVal(int64(b.Priority)))
		}
		if b.Disabled {
			bb.SetAttributeValue("disabled", cty.BoolVal(true))
		}
		if b.Description != "" {
			bb.SetAttributeValue("description", cty.StringVal(b.Description))
		}
	}

	return f.Bytes()
}

// WriteFile serializes blocks and writes them to path.
func WriteFile(path string, blocks []RuleBlock) error {
	if err := os.WriteFile(path, Render(blocks), 0644); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}
	return nil
}
