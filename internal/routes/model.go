package routes

import "encoding/json"

// Descriptor is one hand-authored entry of a route table.
type Descriptor struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Props     bool   `json:"props,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// UnmarshalJSON decodes a descriptor, treating a missing "enabled" field as true.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	type wire Descriptor
	aux := struct {
		*wire
		Enabled *bool `json:"enabled"`
	}{wire: (*wire)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// Route is the record a host keeps in its route collection.
type Route struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Props     bool   `json:"props,omitempty"`
}

// Table is an ordered, read-only route table.
type Table struct {
	entries []Descriptor
}

// NewTable copies descriptors into a Table. Order is preserved.
func NewTable(descriptors ...Descriptor) Table {
	entries := make([]Descriptor, len(descriptors))
	copy(entries, descriptors)
	return Table{entries: entries}
}

// Len returns the number of descriptors, disabled ones included.
func (t Table) Len() int { return len(t.entries) }

// Descriptors returns a copy of every descriptor in table order.
func (t Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.entries))
	copy(out, t.entries)
	return out
}

// Enabled returns the descriptors that take part in registration, in table order.
func (t Table) Enabled() []Descriptor {
	out := make([]Descriptor, 0, len(t.entries))
	for _, d := range t.entries {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}
