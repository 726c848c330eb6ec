package types

import "time"

// CacheStats summarizes the upstream response cache.
type CacheStats struct {
	Entries int64     `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitzero"`
	Newest  time.Time `json:"newest,omitzero"`
}

// Health is the payload of the liveness check.
type Health struct {
	Status       string `json:"status"`
	CacheEnabled bool   `json:"cache_enabled"`
	CacheDir     string `json:"cache_dir"`
	CacheDriver  string `json:"cache_driver"`
	CacheEntries int64  `json:"cache_entries"`
	APIBackend   string `json:"api_backend"`
}

// Info is served from the root endpoint.
type Info struct {
	Message       string `json:"message"`
	Documentation string `json:"documentation"`
	Version       string `json:"version"`
	DataSource    string `json:"data_source"`
}
