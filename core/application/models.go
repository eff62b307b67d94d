package application

import (
	"math"
	"time"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
)

type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
)

var Statuses = []Status{StatusSubmitted, StatusApproved, StatusRejected}

func (s Status) IsFinal() bool { return s == StatusApproved || s == StatusRejected }

func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s)
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", core.NewFieldError("status", "invalid application status")
}

const (
	DefaultUniversity   = "Unspecified university"
	DefaultMobilityType = "Study"
)

// Decision is the metadata of the last approve/reject. Absent while Submitted.
type Decision struct {
	DecidedAt       time.Time `json:"decided_at"` // UTC
	DecidedBy       string    `json:"decided_by"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

type Application struct {
	ID            string              `json:"id"`
	StudentEmail  string              `json:"student_email"`
	StudentName   string              `json:"student_name"`
	University    string              `json:"university"`
	MobilityType  string              `json:"mobility_type"`
	Status        Status              `json:"status"`
	Progress      int                 `json:"progress"`
	SubmittedDate time.Time           `json:"submitted_date"`
	Decision      *Decision           `json:"decision,omitempty"`
	CreatedAt     time.Time           `json:"created_at"` // UTC
	Documents     []document.Document `json:"documents,omitempty"`
	Comments      []comment.Comment   `json:"comments,omitempty"`
}

func (app Application) OwnedBy(id core.Identity) bool {
	return id.Email != "" && app.StudentEmail == id.Email
}

// CanView tells whether id may read app: its owner or any admin.
func (app Application) CanView(id core.Identity) bool {
	return id.IsAdmin() || app.OwnedBy(id)
}

// Progress is the completion percentage of docs over the checklist, rounded and clamped to [0, 100].
func Progress(docs []document.Document) int {
	p := int(math.Round(100 * float64(document.DistinctKeys(docs)) / float64(TotalRequirements())))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// NewApplication contains information needed to submit a new Application.
type NewApplication struct {
	University   string
	MobilityType string
	Documents    []document.Upload
}

func (na *NewApplication) Clean() {
	na.University = core.CleanString(na.University)
	if na.University == "" {
		na.University = DefaultUniversity
	}
	na.MobilityType = core.CleanString(na.MobilityType)
	if na.MobilityType == "" {
		na.MobilityType = DefaultMobilityType
	}
}

type QueryFilter struct {
	Status       string `query:"status"`
	Search       string `query:"search"`
	StudentEmail string `query:"student"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status)
	qf.Search = core.CleanString(qf.Search)
	qf.StudentEmail = core.CleanString(qf.StudentEmail, true /* lower */)
}

type RejectRequest struct {
	Reason string `json:"reason"`
}
