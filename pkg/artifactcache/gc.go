package artifactcache

import (
	"time"

	"github.com/timshannon/bolthold"
)

const (
	keepUsed   = 30 * 24 * time.Hour
	keepUnused = 7 * 24 * time.Hour
	keepTemp   = 5 * time.Minute
	keepOld    = 5 * time.Minute
)

func (h *Handler) gcCache() {
	if !h.gcing.CompareAndSwap(false, true) {
		return
	}
	defer h.gcing.Store(false)

	if time.Since(h.gcAt) < time.Hour {
		h.logger.Debugf("skip gc: %v", h.gcAt.String())
		return
	}
	h.gcAt = time.Now()
	h.logger.Debugf("gc: %v", h.gcAt.String())

	db, err := h.openDB()
	if err != nil {
		return
	}
	defer db.Close()

	// Remove the caches which are not completed for a while, they are most likely to be broken.
	var entries []*Entry
	if err := db.Find(&entries, bolthold.
		Where("UsedAt").Lt(time.Now().Add(-keepTemp).Unix()).
		And("Complete").Eq(false),
	); err != nil {
		h.logger.Warnf("find caches: %v", err)
	} else {
		h.deleteEntries(db, entries, "temp")
	}

	// Remove the old caches which have not been used recently.
	entries = entries[:0]
	if err := db.Find(&entries, bolthold.
		Where("UsedAt").Lt(time.Now().Add(-keepUnused).Unix()),
	); err != nil {
		h.logger.Warnf("find caches: %v", err)
	} else {
		h.deleteEntries(db, entries, "unused")
	}

	// Remove the old caches which are too old.
	entries = entries[:0]
	if err := db.Find(&entries, bolthold.
		Where("CreatedAt").Lt(time.Now().Add(-keepUsed).Unix()),
	); err != nil {
		h.logger.Warnf("find caches: %v", err)
	} else {
		h.deleteEntries(db, entries, "used")
	}

	// Remove the old caches with the same key and version, keep the latest one.
	// Older entries are kept for keepOld so a download in flight can finish.
	if results, err := db.FindAggregate(
		&Entry{},
		bolthold.Where("Complete").Eq(true),
		"Key", "Version",
	); err != nil {
		h.logger.Warnf("find aggregate caches: %v", err)
	} else {
		for _, result := range results {
			if result.Count() <= 1 {
				continue
			}
			result.Sort("CreatedAt")
			entries = entries[:0]
			result.Reduction(&entries)
			var stale []*Entry
			for _, entry := range entries[:len(entries)-1] {
				if time.Unix(entry.CreatedAt, 0).Before(time.Now().Add(-keepOld)) {
					stale = append(stale, entry)
				}
			}
			h.deleteEntries(db, stale, "old")
		}
	}
}

func (h *Handler) deleteEntries(db *bolthold.Store, entries []*Entry, reason string) {
	for _, entry := range entries {
		h.storage.Remove(entry.ID)
		if err := db.Delete(entry.ID, entry); err != nil {
			h.logger.Warnf("delete cache: %v", err)
			continue
		}
		h.metrics.gcDeleted.WithLabelValues(reason).Inc()
		h.logger.Infof("deleted cache: %+v", entry)
	}
}
