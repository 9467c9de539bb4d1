package pipeline

import "log/slog"

// DedupStore answers whether an update has already been processed.
type DedupStore interface {
	HasUpdateID(updateID int64) (bool, error)
}

// isDuplicate reports whether the update was already handled. Zero update
// IDs (non-webhook messages) are never duplicates, and a failing store
// check fails open so delivery is not blocked.
func (p *Pipeline) isDuplicate(updateID int64) bool {
	if updateID == 0 {
		return false
	}
	dup, err := p.store.HasUpdateID(updateID)
	if err != nil {
		slog.Warn("dedup check failed, proceeding", "update_id", updateID, "error", err)
		return false
	}
	return dup
}
