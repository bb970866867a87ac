package events

import "time"

// TopicHost is the event bus topic for route and plugin changes.
const TopicHost = "host.events"

const (
	TypeRoutesReloaded = "ROUTES_RELOADED"
	TypeReloadFailed   = "ROUTES_RELOAD_FAILED"
	TypePluginEnabled  = "PLUGIN_ENABLED"
	TypePluginDisabled = "PLUGIN_DISABLED"
)

// HostEvent describes a change to the host's route collection or plugin set.
type HostEvent struct {
	Type       string    `json:"type"`
	Plugin     string    `json:"plugin,omitempty"`
	Plugins    []string  `json:"plugins,omitempty"`
	RouteCount int       `json:"route_count"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message,omitempty"`
}
