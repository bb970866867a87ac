package routes

import "testing"

func TestDuplicatesReportsNamesAndPaths(t *testing.T) {
	collection := []Route{
		{Name: "index", Path: "/"},
		{Name: "login", Path: "/demo/login"},
		{Name: "index", Path: "/demo/index"},
		{Name: "signin", Path: "/demo/login"},
	}

	report := Duplicates(collection)
	if report.Empty() {
		t.Fatalf("expected duplicates")
	}
	if len(report.Names) != 1 || report.Names[0].Key != "index" {
		t.Fatalf("unexpected name conflicts: %+v", report.Names)
	}
	if got := report.Names[0].Indexes; len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("unexpected name indexes: %v", got)
	}
	if len(report.Paths) != 1 || report.Paths[0].Key != "/demo/login" {
		t.Fatalf("unexpected path conflicts: %+v", report.Paths)
	}
}

func TestDuplicatesEmpty(t *testing.T) {
	report := Duplicates([]Route{{Name: "a", Path: "/a"}, {Name: "b", Path: "/b"}})
	if !report.Empty() {
		t.Fatalf("expected no duplicates, got %+v", report)
	}
}
