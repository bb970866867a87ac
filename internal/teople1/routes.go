package teople1

import "github.com/teople1/teople1/internal/routes"

// Table is the route table the teople1 module contributes to the host.
var Table = routes.NewTable(
	routes.Descriptor{Name: "starting", Path: "/starting", Component: "pages/starting.vue", Enabled: true},
	routes.Descriptor{Name: "example", Path: "/example", Component: "pages/example.vue", Enabled: true},
	routes.Descriptor{Name: "login", Path: "/demo/login", Component: "pages/login.vue", Enabled: true},
	routes.Descriptor{Name: "dashboard", Path: "/demo/dashboard", Component: "layouts/dashboard.vue", Enabled: true},
	routes.Descriptor{Name: "index", Path: "/demo/index", Component: "pages/demo/index.vue", Enabled: true},
)
