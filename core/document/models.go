package document

import (
	"time"

	"github.com/erasmushub/erasmushub/core"
)

type Status string

const (
	StatusSubmitted   Status = "Submitted"
	StatusUnderReview Status = "UnderReview"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
)

var Statuses = []Status{StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected}

// ParseStatus fails with a ValidationError for anything outside Statuses.
func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s)
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", core.NewFieldError("status", "invalid document status")
}

// Document is an uploaded file attached to an application under a checklist key.
type Document struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	Key           string    `json:"key"`
	Label         string    `json:"label"`
	Filename      string    `json:"filename"` // stored reference
	Status        Status    `json:"status"`
	UploadedAt    time.Time `json:"uploaded_at"` // UTC
}

// DistinctKeys returns how many different keys docs cover.
func DistinctKeys(docs []Document) int {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		seen[d.Key] = struct{}{}
	}
	return len(seen)
}

// LatestByKey keeps the most recently uploaded document of each key.
func LatestByKey(docs []Document) map[string]Document {
	latest := make(map[string]Document, len(docs))
	for _, d := range docs {
		if cur, ok := latest[d.Key]; !ok || !d.UploadedAt.Before(cur.UploadedAt) {
			latest[d.Key] = d
		}
	}
	return latest
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required"`
}
