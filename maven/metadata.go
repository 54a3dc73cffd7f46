package maven

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// MetadataCacheTime is how long cached metadata is used before the repository is
	// asked again.
	MetadataCacheTime = 9 * time.Hour

	// MaxStaleRevisions is the number of superseded revisions kept on disk.
	MaxStaleRevisions = 3

	updatedLayout = "20060102150405"
)

var (
	// ErrNotCached is matched by errors reporting missing cached metadata in Force mode.
	ErrNotCached = errors.New("artifact not cached")

	// ErrMissingEndpoint is returned when no Maven snapshot endpoint is configured.
	ErrMissingEndpoint = errors.New("no Maven snapshot endpoint URL configured. " +
		"You can configure it using 'ui5 config set mavenSnapshotEndpointUrl <url>'")
)

// NotCachedError reports that cache mode Force was requested for an artifact without
// cached metadata.
type NotCachedError struct {
	LogID string
}

func (e *NotCachedError) Error() string {
	return fmt.Sprintf("Could not find artifact %s in local cache", e.LogID)
}

// Is reports ErrNotCached.
func (e *NotCachedError) Is(target error) bool { return target == ErrNotCached }

// LocalMetadata is the cached state of one artifact deployment.
type LocalMetadata struct {
	// LastCheck is when the repository was last asked, in ms since epoch.
	LastCheck int64 `json:"lastCheck"`
	// LastUpdate is the deployment time of Revision, in ms since epoch.
	LastUpdate     int64    `json:"lastUpdate"`
	Revision       string   `json:"revision"`
	StaleRevisions []string `json:"staleRevisions"`
}

// Fresh reports whether the cached revision may be used at now (ms since epoch)
// without asking the repository. A LastCheck in the future is never fresh.
func (m *LocalMetadata) Fresh(now int64) bool {
	if m.Revision == "" || m.LastCheck > now {
		return false
	}
	return now-m.LastCheck <= MetadataCacheTime.Milliseconds()
}

// rotate makes revision current, moving the previous one to the stale list.
// It returns the stale revisions exceeding MaxStaleRevisions, oldest first.
func (m *LocalMetadata) rotate(revision string, lastUpdate int64) []string {
	if m.Revision != "" && m.Revision != revision {
		m.StaleRevisions = append(m.StaleRevisions, m.Revision)
	}
	m.StaleRevisions = slices.DeleteFunc(m.StaleRevisions, func(r string) bool { return r == revision })
	m.Revision = revision
	m.LastUpdate = lastUpdate

	if len(m.StaleRevisions) <= MaxStaleRevisions {
		return nil
	}
	cut := len(m.StaleRevisions) - MaxStaleRevisions
	evicted := slices.Clone(m.StaleRevisions[:cut])
	m.StaleRevisions = slices.Clone(m.StaleRevisions[cut:])
	return evicted
}

// parseUpdated converts a snapshotVersion "updated" timestamp (UTC yyyyMMddHHmmss)
// to ms since epoch.
func parseUpdated(updated string) (int64, error) {
	t, err := time.Parse(updatedLayout, updated)
	if err != nil {
		return 0, fmt.Errorf("invalid deployment timestamp %q: %w", updated, err)
	}
	return t.UnixMilli(), nil
}
