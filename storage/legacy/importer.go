// Package legacy imports the JSON files written by the former file-based storage
// into the relational repositories.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
)

const (
	UsersFile         = "users.json"
	ApplicationsFile  = "applications.json"
	MessagesFile      = "messages.json"
	AnnouncementsFile = "announcements.json"
)

var applicationStatuses = map[string]application.Status{
	"Podaná":     application.StatusSubmitted,
	"Schválená":  application.StatusApproved,
	"Zamietnutá": application.StatusRejected,
	"Submitted":  application.StatusSubmitted,
	"Approved":   application.StatusApproved,
	"Rejected":   application.StatusRejected,
}

var documentStatuses = map[string]document.Status{
	"Odoslaný":      document.StatusSubmitted,
	"V preverovaní": document.StatusUnderReview,
	"Schválený":     document.StatusApproved,
	"Zamietnutý":    document.StatusRejected,
	"Submitted":     document.StatusSubmitted,
	"UnderReview":   document.StatusUnderReview,
	"Approved":      document.StatusApproved,
	"Rejected":      document.StatusRejected,
}

var mobilityTypes = map[string]string{
	"Štúdium": "Study",
	"Stáž":    "Traineeship",
}

var timeLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads the day-first and ISO formats found in the legacy files, as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func timeOr(s string, fallback time.Time) time.Time {
	if t, ok := parseTime(s); ok {
		return t
	}
	return fallback
}

type (
	legacyUser struct {
		Password string `json:"password"`
		Role     string `json:"role"`
		Name     string `json:"name"`
		Faculty  string `json:"faculty"`
	}

	legacyDocument struct {
		Key      string `json:"key"`
		Label    string `json:"label"`
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}

	legacyComment struct {
		AuthorEmail string `json:"author_email"`
		Author      string `json:"author"`
		Text        string `json:"text"`
		CreatedAt   string `json:"created_at"`
	}

	legacyApplication struct {
		ID              string           `json:"id"`
		StudentEmail    string           `json:"student_email"`
		StudentName     string           `json:"student_name"`
		University      string           `json:"university"`
		Type            string           `json:"type"`
		Status          string           `json:"status"`
		Submitted       string           `json:"submitted"`
		ApprovedAt      *string          `json:"approved_at"`
		ApprovedBy      *string          `json:"approved_by"`
		RejectedAt      *string          `json:"rejected_at"`
		RejectedBy      *string          `json:"rejected_by"`
		RejectionReason *string          `json:"rejection_reason"`
		CreatedAt       string           `json:"created_at"`
		Documents       []legacyDocument `json:"documents"`
		Comments        []legacyComment  `json:"comments"`
	}

	legacyMessage struct {
		ID        string  `json:"id"`
		FromEmail string  `json:"from_email"`
		FromName  string  `json:"from_name"`
		FromRole  string  `json:"from_role"`
		ToEmail   *string `json:"to_email"`
		ToRole    string  `json:"to_role"`
		Text      string  `json:"text"`
		Read      bool    `json:"read"`
		CreatedAt string  `json:"created_at"`
	}

	legacyAnnouncement struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Content    string `json:"content"`
		Priority   string `json:"priority"`
		CreatedBy  string `json:"created_by"`
		AuthorName string `json:"author_name"`
		CreatedAt  string `json:"created_at"`
	}
)

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type Counts struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (c *Counts) add(err error, skipped bool) {
	switch {
	case err != nil:
		c.Failed++
	case skipped:
		c.Skipped++
	default:
		c.Imported++
	}
}

type Summary struct {
	Users         Counts `json:"users"`
	Applications  Counts `json:"applications"`
	Messages      Counts `json:"messages"`
	Announcements Counts `json:"announcements"`
}

func (s Summary) String() string {
	line := func(kind string, c Counts) string {
		return fmt.Sprintf("%-14s imported: %d, skipped: %d, failed: %d", kind, c.Imported, c.Skipped, c.Failed)
	}
	return strings.Join([]string{
		line("users", s.Users),
		line("applications", s.Applications),
		line("messages", s.Messages),
		line("announcements", s.Announcements),
	}, "\n")
}

type Deps struct {
	Tx            core.Transactor
	Users         user.Repository
	Applications  application.Repository
	Documents     document.Repository
	Comments      comment.Repository
	Messages      message.Repository
	Announcements announcement.Repository
	Logger        core.Logger
}

// Importer copies legacy records that do not exist yet. Existing ids and emails are skipped,
// so running it twice is harmless.
type Importer struct {
	Deps
}

func NewImporter(deps Deps) *Importer {
	return &Importer{Deps: deps}
}

// Import reads the legacy files from dir. Missing files are skipped; a failing record is
// logged and counted, and never aborts the import.
func (imp *Importer) Import(ctx context.Context, dir string) (Summary, error) {
	var sum Summary
	fi, err := os.Stat(dir)
	if err != nil {
		return sum, errors.Wrap(err, "reading import directory")
	}
	if !fi.IsDir() {
		return sum, errors.Errorf("%s is not a directory", dir)
	}

	imp.importUsers(ctx, filepath.Join(dir, UsersFile), &sum.Users)
	imp.importList(ctx, filepath.Join(dir, ApplicationsFile), applicationRecord, imp.importApplication, &sum.Applications)
	imp.importList(ctx, filepath.Join(dir, MessagesFile), messageRecord, imp.importMessage, &sum.Messages)
	imp.importList(ctx, filepath.Join(dir, AnnouncementsFile), announcementRecord, imp.importAnnouncement, &sum.Announcements)
	return sum, nil
}

// readFile returns ok=false when path does not exist or cannot be read.
func (imp *Importer) readFile(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			imp.Logger.Info(fmt.Sprintf("%s not found, skipping", filepath.Base(path)))
		} else {
			imp.Logger.Error(fmt.Sprintf("reading %s", filepath.Base(path)), err)
		}
		return nil, false
	}
	return data, true
}

func validateRecord(schema *gojsonschema.Schema, raw json.RawMessage) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.Wrap(err, "validating record")
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.Errorf("invalid record: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (imp *Importer) importUsers(ctx context.Context, path string, counts *Counts) {
	data, ok := imp.readFile(path)
	if !ok {
		return
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		imp.Logger.Error(fmt.Sprintf("decoding %s", filepath.Base(path)), err)
		return
	}

	emails := make([]string, 0, len(records))
	for email := range records {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		skipped, err := imp.importUser(ctx, email, records[email])
		if err != nil {
			imp.Logger.Error(fmt.Sprintf("importing user %q", email), err)
		}
		counts.add(err, skipped)
	}
}

func (imp *Importer) importUser(ctx context.Context, email string, raw json.RawMessage) (bool, error) {
	if err := validateRecord(userRecord, raw); err != nil {
		return false, err
	}
	var rec legacyUser
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, errors.Wrap(err, "decoding user")
	}

	email = core.CleanString(email, true /* lower */)
	if _, err := imp.Users.GetUserByEmail(ctx, email); err == nil {
		return true, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return false, errors.Wrap(err, "checking user")
	}

	usr := user.User{
		Email:    email,
		Name:     rec.Name,
		Faculty:  rec.Faculty,
		Role:     rec.Role,
		Password: rec.Password,
	}
	if usr.Role == "" {
		usr.Role = core.RoleStudent
	}
	if !user.IsPasswordHash(usr.Password) {
		if err := usr.SetPassword(rec.Password); err != nil {
			return false, errors.Wrap(err, "hashing password")
		}
	}
	_, err := imp.Users.CreateUser(ctx, usr)
	return false, errors.Wrap(err, "inserting user")
}

func (imp *Importer) importList(
	ctx context.Context,
	path string,
	schema *gojsonschema.Schema,
	importOne func(context.Context, json.RawMessage) (bool, error),
	counts *Counts,
) {
	data, ok := imp.readFile(path)
	if !ok {
		return
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		imp.Logger.Error(fmt.Sprintf("decoding %s", filepath.Base(path)), err)
		return
	}

	for i, raw := range records {
		var (
			skipped bool
			err     = validateRecord(schema, raw)
		)
		if err == nil {
			skipped, err = importOne(ctx, raw)
		}
		if err != nil {
			imp.Logger.Error(fmt.Sprintf("importing record %d of %s", i, filepath.Base(path)), err)
		}
		counts.add(err, skipped)
	}
}

func (imp *Importer) importApplication(ctx context.Context, raw json.RawMessage) (bool, error) {
	var rec legacyApplication
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, errors.Wrap(err, "decoding application")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := imp.Applications.GetApplication(ctx, rec.ID); err == nil {
		return true, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return false, errors.Wrap(err, "checking application")
	}

	status := application.StatusSubmitted
	if rec.Status != "" {
		st, ok := applicationStatuses[strings.TrimSpace(rec.Status)]
		if !ok {
			return false, errors.Errorf("unknown application status %q", rec.Status)
		}
		status = st
	}

	now := core.Now()
	createdAt := timeOr(rec.CreatedAt, now)
	app := application.Application{
		ID:            rec.ID,
		StudentEmail:  core.CleanString(rec.StudentEmail, true /* lower */),
		StudentName:   rec.StudentName,
		University:    rec.University,
		MobilityType:  rec.Type,
		Status:        application.StatusSubmitted,
		SubmittedDate: timeOr(rec.Submitted, createdAt).Truncate(24 * time.Hour),
		CreatedAt:     createdAt,
	}
	if mt, ok := mobilityTypes[app.MobilityType]; ok {
		app.MobilityType = mt
	}
	na := application.NewApplication{University: app.University, MobilityType: app.MobilityType}
	na.Clean()
	app.University, app.MobilityType = na.University, na.MobilityType

	docs := make([]document.Document, 0, len(rec.Documents))
	for _, d := range rec.Documents {
		docStatus := document.StatusSubmitted
		if d.Status != "" {
			st, ok := documentStatuses[strings.TrimSpace(d.Status)]
			if !ok {
				return false, errors.Errorf("unknown document status %q", d.Status)
			}
			docStatus = st
		}
		label := d.Label
		if label == "" {
			if req, ok := application.LookupRequirement(d.Key); ok {
				label = req.Label
			} else {
				label = d.Key
			}
		}
		docs = append(docs, document.Document{
			ApplicationID: app.ID,
			Key:           d.Key,
			Label:         label,
			Filename:      d.Filename,
			Status:        docStatus,
			UploadedAt:    createdAt,
		})
	}
	app.Progress = application.Progress(docs)

	var decision *application.Decision
	switch status {
	case application.StatusApproved:
		decision = &application.Decision{DecidedAt: timeOr(str(rec.ApprovedAt), createdAt), DecidedBy: str(rec.ApprovedBy)}
	case application.StatusRejected:
		decision = &application.Decision{
			DecidedAt:       timeOr(str(rec.RejectedAt), createdAt),
			DecidedBy:       str(rec.RejectedBy),
			RejectionReason: str(rec.RejectionReason),
		}
	}

	err := imp.Tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := imp.Applications.CreateApplication(ctx, app, exec); err != nil {
			return errors.Wrap(err, "inserting application")
		}
		for _, d := range docs {
			if _, err := imp.Documents.CreateDocument(ctx, d, exec); err != nil {
				return errors.Wrap(err, "inserting document")
			}
		}
		for _, c := range rec.Comments {
			_, err := imp.Comments.CreateComment(ctx, comment.Comment{
				ApplicationID: app.ID,
				AuthorEmail:   c.AuthorEmail,
				AuthorName:    c.Author,
				Text:          c.Text,
				CreatedAt:     timeOr(c.CreatedAt, now),
			}, exec)
			if err != nil {
				return errors.Wrap(err, "inserting comment")
			}
		}
		if decision != nil {
			return errors.Wrap(imp.Applications.SetDecision(ctx, app.ID, status, *decision, exec), "setting decision")
		}
		return nil
	})
	return false, err
}

func (imp *Importer) importMessage(ctx context.Context, raw json.RawMessage) (bool, error) {
	var rec legacyMessage
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, errors.Wrap(err, "decoding message")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := imp.Messages.GetMessage(ctx, rec.ID); err == nil {
		return true, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return false, errors.Wrap(err, "checking message")
	}

	m := message.Message{
		ID:        rec.ID,
		FromEmail: core.CleanString(rec.FromEmail, true /* lower */),
		FromName:  rec.FromName,
		FromRole:  rec.FromRole,
		ToEmail:   core.CleanString(str(rec.ToEmail), true /* lower */),
		ToRole:    rec.ToRole,
		Text:      rec.Text,
		IsRead:    rec.Read,
		CreatedAt: timeOr(rec.CreatedAt, core.Now()),
	}
	if m.FromRole == "" {
		m.FromRole = core.RoleStudent
	}
	if m.ToRole == "" {
		m.ToRole = core.RoleAdmin
		if m.FromRole == core.RoleAdmin {
			m.ToRole = core.RoleStudent
		}
	}
	_, err := imp.Messages.CreateMessage(ctx, m)
	return false, errors.Wrap(err, "inserting message")
}

func (imp *Importer) importAnnouncement(ctx context.Context, raw json.RawMessage) (bool, error) {
	var rec legacyAnnouncement
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, errors.Wrap(err, "decoding announcement")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := imp.Announcements.GetAnnouncement(ctx, rec.ID); err == nil {
		return true, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return false, errors.Wrap(err, "checking announcement")
	}

	a := announcement.Announcement{
		ID:          rec.ID,
		Title:       rec.Title,
		Content:     rec.Content,
		Priority:    rec.Priority,
		AuthorEmail: rec.CreatedBy,
		AuthorName:  rec.AuthorName,
		CreatedAt:   timeOr(rec.CreatedAt, core.Now()),
	}
	if a.Priority == "" {
		a.Priority = announcement.PriorityNormal
	}
	_, err := imp.Announcements.CreateAnnouncement(ctx, a)
	return false, errors.Wrap(err, "inserting announcement")
}
