// Package catalog groups panel rows and fills record units from the material
// catalog.
package catalog

import (
	"sort"
	"strings"

	"sitepanel.org/internal/panelapi"
)

// PanelGroup is a panel with its distinct circuits.
type PanelGroup struct {
	PanelName string
	Circuits  []string
}

// GroupPanels folds panel rows by trimmed name. Groups are sorted by name and
// circuits are sorted and unique. Rows without a name are dropped.
func GroupPanels(rows []panelapi.Panel) []PanelGroup {
	byName := make(map[string]map[string]struct{})
	for _, row := range rows {
		name := strings.TrimSpace(row.PanelName)
		if name == "" {
			continue
		}
		circuits, ok := byName[name]
		if !ok {
			circuits = make(map[string]struct{})
			byName[name] = circuits
		}
		if circuit := strings.TrimSpace(row.Circuit); circuit != "" {
			circuits[circuit] = struct{}{}
		}
	}

	groups := make([]PanelGroup, 0, len(byName))
	for name, set := range byName {
		circuits := make([]string, 0, len(set))
		for c := range set {
			circuits = append(circuits, c)
		}
		sort.Strings(circuits)
		groups = append(groups, PanelGroup{PanelName: name, Circuits: circuits})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].PanelName < groups[j].PanelName })
	return groups
}

// CircuitsFor returns the circuits of panel, or nil when unknown.
func CircuitsFor(groups []PanelGroup, panel string) []string {
	panel = strings.TrimSpace(panel)
	for _, g := range groups {
		if g.PanelName == panel {
			return g.Circuits
		}
	}
	return nil
}

// ValidCircuit reports whether circuit belongs to panel. An empty circuit is
// always valid.
func ValidCircuit(groups []PanelGroup, panel, circuit string) bool {
	circuit = strings.TrimSpace(circuit)
	if circuit == "" {
		return true
	}
	for _, c := range CircuitsFor(groups, panel) {
		if c == circuit {
			return true
		}
	}
	return false
}

// UnitFor returns the catalog unit for a material name, matched exactly after
// trimming.
func UnitFor(materials []panelapi.Material, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, m := range materials {
		if strings.TrimSpace(m.MaterialName) == name {
			return m.Unit, true
		}
	}
	return "", false
}

// ApplyUnit sets r's unit from the catalog. Records for unknown materials keep
// their unit.
func ApplyUnit(r panelapi.DailyReport, materials []panelapi.Material) panelapi.DailyReport {
	if unit, ok := UnitFor(materials, r.MaterialName); ok {
		r.Unit = unit
	}
	return r
}

// ApplyReceivedUnit is ApplyUnit for deliveries.
func ApplyReceivedUnit(r panelapi.Received, materials []panelapi.Material) panelapi.Received {
	if unit, ok := UnitFor(materials, r.MaterialName); ok {
		r.Unit = unit
	}
	return r
}

// Names lists material names in catalog order.
func Names(materials []panelapi.Material) []string {
	out := make([]string, 0, len(materials))
	for _, m := range materials {
		if name := strings.TrimSpace(m.MaterialName); name != "" {
			out = append(out, name)
		}
	}
	return out
}
