// Package audit records state-changing tracker operations.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/fentz26/tracker/internal/store"
)

// Writer persists journal entries. *store.Store satisfies it.
type Writer interface {
	WriteJournal(ctx context.Context, action, inputsHash, outcome string, itemID int, details string) (*store.JournalEntry, error)
}

// Journal writes audit entries for mutations. A nil or disabled Journal
// drops everything.
type Journal struct {
	w       Writer
	enabled bool
}

// NewJournal creates a journal backed by w.
func NewJournal(w Writer, enabled bool) *Journal {
	return &Journal{w: w, enabled: enabled && w != nil}
}

// Record writes an entry for action. Failures are logged, not returned:
// the journal must never block the operation it describes.
func (j *Journal) Record(ctx context.Context, action string, inputs interface{}, outcome string, itemID int, details string) {
	if j == nil || !j.enabled {
		return
	}
	if _, err := j.w.WriteJournal(ctx, action, hashInputs(inputs), outcome, itemID, details); err != nil {
		log.Printf("audit: %s: %v", action, err)
	}
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
