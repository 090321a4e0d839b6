package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Schema lists the fields a structured event must carry.
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"snapshot_applied": {Event: "snapshot_applied", Required: []string{"status", "latency"}},
	"event_applied":    {Event: "event_applied", Required: []string{"status"}},
	"activate":         {Event: "activate", Required: []string{"keepalive_interval"}},
	"deactivate":       {Event: "deactivate", Required: []string{"reason"}},
	"gateway_built":    {Event: "gateway_built", Required: []string{"base_url", "ws_endpoint"}},
	"stub_status_set":  {Event: "stub_status_set", Required: []string{"status", "subscribers"}},
	"stub_subscribe":   {Event: "stub_subscribe", Required: []string{"order_id"}},
}

// KnownEvents returns every event name with a schema.
func KnownEvents() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidateEvent reports missing required fields. Events without a schema pass.
func ValidateEvent(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}
