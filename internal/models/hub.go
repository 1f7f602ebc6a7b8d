package models

// Hub is a physical location offering intake appointments. Hubs are defined
// by administrators in configs/hubs.yaml and are referenced by ID everywhere
// else; the engine never mutates them.
type Hub struct {
	ID           int64    `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Timezone     string   `yaml:"timezone" json:"timezone"`
	DefaultSlots []string `yaml:"default_slots" json:"defaultSlots"`
	Active       bool     `yaml:"active" json:"active"`
}
