package domain

import "time"

// MirrorItem is the local copy of a remote item kept by the sync job.
type MirrorItem struct {
	ID           int32      `json:"id"`
	RemoteID     string     `json:"remote_id"`
	Name         string     `json:"name"`
	Pieces       int        `json:"pieces"`
	Price        float64    `json:"price"`
	Note         string     `json:"note"`
	Archived     bool       `json:"archived"`
	LastSyncedOn time.Time  `json:"last_synced_on"`
	ArchivedOn   *time.Time `json:"archived_on,omitempty"`
}

// RejectedItem is a remote list entry that could not be normalized.
type RejectedItem struct {
	Index  int    // position in the remote list
	ID     string // empty when the entry has no usable id
	Reason string
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Fetched  int      `json:"fetched"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Archived int64    `json:"archived"`
	Errors   []string `json:"errors"`
}
