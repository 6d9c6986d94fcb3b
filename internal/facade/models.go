// internal/facade/models.go
package facade

import "encoding/json"

// envelope is the Data API response wrapper. Data stays raw until the
// caller decodes it into the operation's type; a missing data field is
// tolerated (the caller applies defaults).
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// request is the POST body shape: {action: string, ...params}.
type request struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ConnectionStatus is the connection_test payload.
type ConnectionStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
	Time     string `json:"time"`
}
