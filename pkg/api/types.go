package api

import (
	"context"
	"encoding/hex"

	"github.com/ssargent/strata/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind string
	Port int
	// APIKey guards /api/v1. Empty disables the check.
	APIKey string
}

// Inspector is the read-only view of a store the API serves. *store.Store
// implements it.
type Inspector interface {
	Stats(ctx context.Context) (*store.Stats, error)
	Scan(ctx context.Context, prefix []byte, limit int) ([]store.Entry, error)
}

var _ Inspector = (*store.Store)(nil)

// EntryResponse is a raw entry with hex-encoded key and value.
type EntryResponse struct {
	KeyPrefix     uint32 `json:"key_prefix"`
	FieldsVersion uint32 `json:"fields_version"`
	Key           string `json:"key"`
	Value         string `json:"value"`
	Size          int    `json:"size"`
}

func newEntryResponse(e store.Entry) EntryResponse {
	return EntryResponse{
		KeyPrefix:     e.KeyPrefix,
		FieldsVersion: e.FieldsVersion,
		Key:           hex.EncodeToString(e.Key),
		Value:         hex.EncodeToString(e.Value),
		Size:          len(e.Key) + len(e.Value),
	}
}
