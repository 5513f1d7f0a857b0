package event

import "github.com/cyrup-ai/kodegen-tools-config/pkg/types"

// EventType represents the type of event.
type EventType string

const (
	ConfigUpdated    EventType = "config.updated"
	ClientConnected  EventType = "client.connected"
	ConfigSaved      EventType = "config.saved"
	ConfigSaveFailed EventType = "config.save_failed"
)

// ConfigUpdatedData is the data for config.updated events.
type ConfigUpdatedData struct {
	Key   string            `json:"key"`
	Value types.ConfigValue `json:"value"`
}

// ClientConnectedData is the data for client.connected events.
type ClientConnectedData struct {
	Client types.ClientInfo `json:"client"`
	// New is true the first time this (name, version) pair is seen.
	New bool `json:"new"`
}

// ConfigSavedData is the data for config.saved events.
type ConfigSavedData struct {
	Path   string `json:"path"`
	Writes uint64 `json:"writes"`
}

// ConfigSaveFailedData is the data for config.save_failed events.
type ConfigSaveFailedData struct {
	Path     string `json:"path"`
	Failures uint64 `json:"failures"`
	Error    string `json:"error"`
}
