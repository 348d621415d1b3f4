package publish

import (
	"github.com/viceclone/dlob-server/internal/models"
)

// DigestStore records the content digest of the last published snapshot per
// market. *monitor.Monitor implements it.
type DigestStore interface {
	SwapDigest(desc models.Descriptor, digest uint64) bool
}

// Detector decides whether a formatted snapshot is novel enough to publish.
type Detector struct {
	store DigestStore
}

// NewDetector creates a detector backed by the given digest store.
func NewDetector(store DigestStore) *Detector {
	return &Detector{store: store}
}

// ShouldPublish gates publication for one market. ALWAYS markets publish
// every cycle; ON_CHANGE markets publish only when the snapshot's content
// digest differs from the last published one. The stored digest is updated on
// every true decision, before any sink write happens; suppression is
// best-effort, not transactional.
func (d *Detector) ShouldPublish(cfg models.PublishConfig, snap models.Snapshot) bool {
	changed := d.store.SwapDigest(cfg.Market, snap.ContentDigest())
	if cfg.Mode == models.PublishAlways {
		return true
	}
	return changed
}
