package routes

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// HCLRoute is the decoded form of a `route "<name>" { ... }` block.
type HCLRoute struct {
	Name      string `hcl:"name,label"`
	Path      string `hcl:"path"`
	Component string `hcl:"component"`
	Props     *bool  `hcl:"props,optional"`
	Enabled   *bool  `hcl:"enabled,optional"`
}

// Descriptor converts the block, defaulting enabled to true.
func (r *HCLRoute) Descriptor() Descriptor {
	d := Descriptor{
		Name:      r.Name,
		Path:      r.Path,
		Component: r.Component,
		Enabled:   true,
	}
	if r.Props != nil {
		d.Props = *r.Props
	}
	if r.Enabled != nil {
		d.Enabled = *r.Enabled
	}
	return d
}

// TableFromHCL builds a Table from decoded route blocks, keeping file order.
func TableFromHCL(blocks []*HCLRoute) Table {
	descriptors := make([]Descriptor, 0, len(blocks))
	for _, block := range blocks {
		descriptors = append(descriptors, block.Descriptor())
	}
	return NewTable(descriptors...)
}

// hclTableFile is the top-level structure of a route table file. Other
// blocks (plugin metadata, api endpoints) are tolerated and ignored.
type hclTableFile struct {
	Routes []*HCLRoute `hcl:"route,block"`
	Remain hcl.Body    `hcl:",remain"`
}

// LoadTableHCL parses a route table from an HCL file.
func LoadTableHCL(path string) (Table, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return Table{}, fmt.Errorf("routes: parse %s: %w", path, diags)
	}
	return decodeTable(file, path)
}

// ParseTableHCL parses a route table from HCL source.
func ParseTableHCL(src []byte, filename string) (Table, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return Table{}, fmt.Errorf("routes: parse %s: %w", filename, diags)
	}
	return decodeTable(file, filename)
}

func decodeTable(file *hcl.File, name string) (Table, error) {
	var parsed hclTableFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return Table{}, fmt.Errorf("routes: decode %s: %w", name, diags)
	}
	return TableFromHCL(parsed.Routes), nil
}
