package routes

import (
	"errors"
	"reflect"
	"testing"
)

func loginTable() Table {
	return NewTable(Descriptor{Name: "login", Path: "/auth/login", Component: "pages/authentication/login.vue", Enabled: true})
}

func TestExtendResolvesAgainstModuleDir(t *testing.T) {
	got, err := Extend(nil, loginTable(), "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	want := []Route{{Name: "login", Path: "/auth/login", Component: "/mod/pages/authentication/login.vue"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected routes: %+v", got)
	}
}

func TestExtendAppendsAfterExistingInTableOrder(t *testing.T) {
	existing := []Route{{Name: "home", Path: "/", Component: "/host/pages/index.vue"}}
	table := NewTable(
		Descriptor{Name: "a", Path: "/a", Component: "a.vue", Enabled: true},
		Descriptor{Name: "b", Path: "/b/:id", Component: "b.vue", Props: true, Enabled: true},
		Descriptor{Name: "c", Path: "/c", Component: "c.vue", Enabled: true},
	)

	got, err := Extend(existing, table, "/mod", JoinResolver)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(got) != len(existing)+table.Len() {
		t.Fatalf("expected %d routes, got %d", len(existing)+table.Len(), len(got))
	}
	if got[0] != existing[0] {
		t.Fatalf("existing entry moved: %+v", got[0])
	}
	for i, d := range table.Descriptors() {
		route := got[i+1]
		if route.Name != d.Name || route.Path != d.Path {
			t.Fatalf("entry %d: got %+v for descriptor %+v", i, route, d)
		}
		want, _ := JoinResolver("/mod", d.Component)
		if route.Component != want {
			t.Fatalf("entry %d: component %q, want %q", i, route.Component, want)
		}
		if route.Props != d.Props {
			t.Fatalf("entry %d: props %v, want %v", i, route.Props, d.Props)
		}
	}
}

func TestExtendDoesNotMutateInput(t *testing.T) {
	existing := make([]Route, 1, 8)
	existing[0] = Route{Name: "home", Path: "/"}

	got, err := Extend(existing, loginTable(), "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(existing) != 1 {
		t.Fatalf("input length changed: %d", len(existing))
	}
	got[0].Name = "changed"
	if existing[0].Name != "home" {
		t.Fatalf("result aliases input backing array")
	}
}

func TestExtendTwiceDuplicatesEntries(t *testing.T) {
	first, err := Extend(nil, loginTable(), "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("first extend: %v", err)
	}
	second, err := Extend(first, loginTable(), "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("second extend: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(second))
	}
	if second[0] != second[1] {
		t.Fatalf("expected duplicate blocks, got %+v", second)
	}
}

func TestExtendKeepsDuplicateNames(t *testing.T) {
	table := NewTable(
		Descriptor{Name: "index", Path: "/", Component: "pages/index.vue", Enabled: true},
		Descriptor{Name: "index", Path: "/demo/index", Component: "pages/demo/index.vue", Enabled: true},
	)
	got, err := Extend(nil, table, "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(got) != 2 || got[0].Name != "index" || got[1].Name != "index" {
		t.Fatalf("expected both index entries, got %+v", got)
	}
	if got[0].Path == got[1].Path {
		t.Fatalf("paths should differ: %+v", got)
	}
}

func TestExtendSkipsDisabledDescriptors(t *testing.T) {
	table := NewTable(
		Descriptor{Name: "a", Path: "/a", Component: "a.vue", Enabled: true},
		Descriptor{Name: "b", Path: "/b", Component: "b.vue", Enabled: false},
		Descriptor{Name: "c", Path: "/c", Component: "c.vue", Enabled: true},
	)
	got, err := Extend(nil, table, "/mod", SlashResolver)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Fatalf("unexpected routes: %+v", got)
	}
}

func TestExtendFailsFastOnResolverError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	resolve := func(baseDir, rel string) (string, error) {
		calls++
		if rel == "b.vue" {
			return "", boom
		}
		return baseDir + "/" + rel, nil
	}
	table := NewTable(
		Descriptor{Name: "a", Path: "/a", Component: "a.vue", Enabled: true},
		Descriptor{Name: "b", Path: "/b", Component: "b.vue", Enabled: true},
		Descriptor{Name: "c", Path: "/c", Component: "c.vue", Enabled: true},
	)

	got, err := Extend([]Route{{Name: "home"}}, table, "/mod", resolve)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial result, got %+v", got)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error does not wrap resolver failure: %v", err)
	}
	var resolveErr ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Route != "b" {
		t.Fatalf("expected ResolveError for route b, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected resolver to stop after failure, calls=%d", calls)
	}
}

func TestExtendRequiresResolver(t *testing.T) {
	if _, err := Extend(nil, loginTable(), "/mod", nil); err == nil {
		t.Fatalf("expected error for nil resolver")
	}
}

func TestJoinResolver(t *testing.T) {
	cases := []struct {
		base, rel, want string
		wantErr         bool
	}{
		{base: "/mod", rel: "pages/login.vue", want: "/mod/pages/login.vue"},
		{base: "/mod/", rel: "./pages/../layouts/dashboard.vue", want: "/mod/layouts/dashboard.vue"},
		{base: "/mod", rel: "/abs/page.vue", want: "/abs/page.vue"},
		{base: "", rel: "pages/login.vue", wantErr: true},
		{base: "/mod", rel: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := JoinResolver(tc.base, tc.rel)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("JoinResolver(%q, %q): expected error", tc.base, tc.rel)
			}
			continue
		}
		if err != nil {
			t.Fatalf("JoinResolver(%q, %q): %v", tc.base, tc.rel, err)
		}
		if got != tc.want {
			t.Fatalf("JoinResolver(%q, %q) = %q, want %q", tc.base, tc.rel, got, tc.want)
		}
	}
}
