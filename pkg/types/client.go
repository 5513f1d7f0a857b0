package types

import "time"

// ClientInfo identifies a connected caller.
type ClientInfo struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
}

// ClientRecord tracks when a (name, version) pair first and last connected.
type ClientRecord struct {
	ClientInfo  ClientInfo `json:"client_info" yaml:"client_info" toml:"client_info"`
	ConnectedAt time.Time  `json:"connected_at" yaml:"connected_at" toml:"connected_at"`
	LastSeen    time.Time  `json:"last_seen" yaml:"last_seen" toml:"last_seen"`
}

// Matches reports whether the record belongs to the given client.
func (r ClientRecord) Matches(c ClientInfo) bool {
	return r.ClientInfo.Name == c.Name && r.ClientInfo.Version == c.Version
}
