package store

import (
	"context"
)

// RecordKind identifies a CRM record collection
type RecordKind string

const (
	KindContact  RecordKind = "contacts"
	KindAccount  RecordKind = "accounts"
	KindDeal     RecordKind = "deals"
	KindActivity RecordKind = "activities"
)

// Record is a read-only snapshot of a CRM record as seen by the
// assistant core. The concrete schema lives behind the RecordStore.
type Record struct {
	ID     string                 `json:"id"`
	Kind   RecordKind             `json:"kind"`
	Name   string                 `json:"name"`
	Email  string                 `json:"email,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// FirstName returns the leading name token, or the whole name
func (r Record) FirstName() string {
	for i := 0; i < len(r.Name); i++ {
		if r.Name[i] == ' ' {
			return r.Name[:i]
		}
	}
	return r.Name
}

// LastName returns the trailing name token, or "" for single tokens
func (r Record) LastName() string {
	for i := len(r.Name) - 1; i >= 0; i-- {
		if r.Name[i] == ' ' {
			return r.Name[i+1:]
		}
	}
	return ""
}

// RecordStore is the boundary contract to the CRM record store.
// The core only ever reads through it; multi-record writes are the
// dispatched handlers' problem and are not assumed to be atomic.
type RecordStore interface {
	ListByKind(ctx context.Context, teamID string, kind RecordKind) ([]Record, error)
	ResolveTeamID(ctx context.Context, userID string) (string, error)
}
