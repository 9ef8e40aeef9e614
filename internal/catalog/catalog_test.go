package catalog

import (
	"reflect"
	"testing"

	"sitepanel.org/internal/panelapi"
)

func TestGroupPanels(t *testing.T) {
	groups := GroupPanels([]panelapi.Panel{
		{PanelName: "DB-2", Circuit: "C3"},
		{PanelName: "DB-1", Circuit: "C2"},
		{PanelName: " DB-1 ", Circuit: "C1"},
		{PanelName: "DB-1", Circuit: "C2"},
		{PanelName: "DB-3"},
		{PanelName: "", Circuit: "orphan"},
	})
	want := []PanelGroup{
		{PanelName: "DB-1", Circuits: []string{"C1", "C2"}},
		{PanelName: "DB-2", Circuits: []string{"C3"}},
		{PanelName: "DB-3", Circuits: []string{}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("GroupPanels = %+v, want %+v", groups, want)
	}
	if got := CircuitsFor(groups, "DB-1"); !reflect.DeepEqual(got, []string{"C1", "C2"}) {
		t.Fatalf("CircuitsFor = %v", got)
	}
	if CircuitsFor(groups, "nope") != nil {
		t.Fatal("unknown panel should have no circuits")
	}
	if !ValidCircuit(groups, "DB-1", "C2") || ValidCircuit(groups, "DB-2", "C1") || !ValidCircuit(groups, "DB-2", "") {
		t.Fatal("ValidCircuit mismatch")
	}
}

func TestApplyUnit(t *testing.T) {
	materials := []panelapi.Material{{MaterialName: "Cable", Unit: "m"}, {MaterialName: "Box", Unit: "pcs"}}

	r := ApplyUnit(panelapi.DailyReport{MaterialName: " Cable", Unit: "kg"}, materials)
	if r.Unit != "m" {
		t.Fatalf("unit = %q, want m", r.Unit)
	}
	unknown := ApplyUnit(panelapi.DailyReport{MaterialName: "Glue", Unit: "l"}, materials)
	if unknown.Unit != "l" {
		t.Fatalf("unknown material unit changed to %q", unknown.Unit)
	}
	rec := ApplyReceivedUnit(panelapi.Received{MaterialName: "Box"}, materials)
	if rec.Unit != "pcs" {
		t.Fatalf("received unit = %q", rec.Unit)
	}
	if got := Names(materials); !reflect.DeepEqual(got, []string{"Cable", "Box"}) {
		t.Fatalf("Names = %v", got)
	}
}
