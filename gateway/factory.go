package gateway

import "time"

// Endpoints addresses the two external collaborators.
type Endpoints struct {
	BaseURL          string // snapshot API, e.g. http://localhost:8000
	WSEndpoint       string // live channel host, e.g. ws://localhost:8000
	WSPath           string // defaults to /ws/orders
	HTTPTimeout      time.Duration
	HandshakeTimeout time.Duration
}

// BuildOrderClients builds the snapshot and live channel clients without
// opening any connection.
func BuildOrderClients(ep Endpoints) (*SnapshotClient, *OrderStreamClient) {
	rest := &SnapshotClient{
		BaseURL:    ep.BaseURL,
		HTTPClient: NewDefaultHTTPClient(ep.HTTPTimeout),
	}
	ws := NewOrderStreamClient(ep.WSEndpoint, ep.HandshakeTimeout)
	if ep.WSPath != "" {
		ws.Path = ep.WSPath
	}
	return rest, ws
}
