package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application, exec ...core.DBExecutor) (Application, error)
		GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		// QueryApplications applies AND operation on available QueryFilter fields, newest first.
		// QueryFilter.Search does a case-insensitive match on one of University or StudentName.
		QueryApplications(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Application, error)
		UpdateProgress(ctx context.Context, id string, progress int, exec ...core.DBExecutor) error
		SetDecision(ctx context.Context, id string, status Status, decision Decision, exec ...core.DBExecutor) error
		// DeleteApplication also removes the application's documents and comments.
		DeleteApplication(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, requester core.Identity, na NewApplication) (Application, error)
		Get(ctx context.Context, requester core.Identity, id string) (Application, error)
		Query(ctx context.Context, requester core.Identity, filter *QueryFilter) ([]Application, error)
		ReplaceOrAddDocuments(ctx context.Context, requester core.Identity, id string, uploads []document.Upload) (Application, error)
		RemoveDocument(ctx context.Context, requester core.Identity, documentID int64) (Application, error)
		OpenDocument(ctx context.Context, requester core.Identity, documentID int64) (document.Document, io.ReadCloser, error)
		Approve(ctx context.Context, requester core.Identity, id string) (Application, error)
		Reject(ctx context.Context, requester core.Identity, id, reason string) (Application, error)
		Delete(ctx context.Context, requester core.Identity, id string) error
		AddComment(ctx context.Context, requester core.Identity, id string, nc comment.NewComment) (comment.Comment, error)
		ListComments(ctx context.Context, requester core.Identity, id string) ([]comment.Comment, error)
	}

	Deps struct {
		Tx          core.Transactor
		Repo        Repository
		DocRepo     document.Repository
		CommentRepo comment.Repository
		Files       core.FileStorage
		MailSvc     core.EmailService
		Logger      core.Logger
		Metrics     core.Metrics
	}

	Options struct {
		// AllowRedecision keeps approve/reject available on already decided applications.
		AllowRedecision bool
		UploadPolicy    document.UploadPolicy
	}

	service struct {
		Deps
		opts Options
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps, opts Options) Service {
	if deps.Metrics == nil {
		deps.Metrics = core.NopMetrics
	}
	return &service{Deps: deps, opts: opts}
}

// NewOptions derives the lifecycle options from the configuration.
func NewOptions(conf *core.Config) Options {
	return Options{
		AllowRedecision: conf.Applications.AllowRedecision,
		UploadPolicy:    document.NewUploadPolicy(conf.Uploads),
	}
}

// storeUploads validates every upload first, then saves them all.
// On failure, files already saved by this call are released. The caller's slice is not modified.
func (svc *service) storeUploads(ctx context.Context, in []document.Upload) ([]document.Document, error) {
	uploads := make([]document.Upload, len(in))
	copy(uploads, in)
	for i := range uploads {
		uploads[i].Key = core.CleanString(uploads[i].Key)
		if err := svc.opts.UploadPolicy.Validate(uploads[i]); err != nil {
			return nil, err
		}
	}

	now := core.Now()
	docs := make([]document.Document, 0, len(uploads))
	for _, up := range uploads {
		ref, err := svc.Files.Save(ctx, document.StoredName(up.Filename, now), bytes.NewReader(up.Content))
		if err != nil {
			svc.releaseFiles(ctx, docs)
			return nil, errors.Wrap(err, "saving uploaded file")
		}
		label := core.CleanString(up.Label)
		if label == "" {
			if req, ok := LookupRequirement(up.Key); ok {
				label = req.Label
			} else {
				label = up.Key
			}
		}
		docs = append(docs, document.Document{
			Key:        up.Key,
			Label:      label,
			Filename:   ref,
			Status:     document.StatusSubmitted,
			UploadedAt: now,
		})
	}
	return docs, nil
}

// releaseFiles deletes stored files best-effort: failures are only logged.
func (svc *service) releaseFiles(ctx context.Context, docs []document.Document) {
	for _, d := range docs {
		if err := svc.Files.Delete(ctx, d.Filename); err != nil {
			svc.Logger.Warn(fmt.Sprintf("releasing stored file %q: %v", d.Filename, err), err)
		}
	}
}

func (svc *service) Create(ctx context.Context, requester core.Identity, na NewApplication) (Application, error) {
	if !requester.IsStudent() {
		return Application{}, core.ErrForbidden
	}
	na.Clean()

	docs, err := svc.storeUploads(ctx, na.Documents)
	if err != nil {
		return Application{}, err
	}

	now := core.Now()
	app := Application{
		ID:            uuid.New().String(),
		StudentEmail:  requester.Email,
		StudentName:   requester.Name,
		University:    na.University,
		MobilityType:  na.MobilityType,
		Status:        StatusSubmitted,
		Progress:      Progress(docs),
		SubmittedDate: now.Truncate(24 * time.Hour),
		CreatedAt:     now,
	}

	err = svc.Tx.InTx(ctx, func(exec core.DBExecutor) error {
		created, err := svc.Repo.CreateApplication(ctx, app, exec)
		if err != nil {
			return errors.Wrap(err, "inserting application")
		}
		app = created
		for i := range docs {
			docs[i].ApplicationID = app.ID
			if docs[i], err = svc.DocRepo.CreateDocument(ctx, docs[i], exec); err != nil {
				return errors.Wrap(err, "inserting document")
			}
		}
		return nil
	})
	if err != nil {
		svc.releaseFiles(ctx, docs)
		return Application{}, errors.Wrap(err, "creating application")
	}

	svc.Metrics.ApplicationCreated()
	svc.Metrics.DocumentsUploaded(len(docs))
	app.Documents = docs
	return app, nil
}

func (svc *service) get(ctx context.Context, requester core.Identity, id string) (Application, error) {
	app, err := svc.Repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !app.CanView(requester) {
		return Application{}, core.ErrNotFound
	}
	return app, nil
}

// Get returns the application with its documents (insertion order) and comments (newest first).
func (svc *service) Get(ctx context.Context, requester core.Identity, id string) (Application, error) {
	app, err := svc.get(ctx, requester, id)
	if err != nil {
		return Application{}, err
	}
	if app.Documents, err = svc.DocRepo.ListDocuments(ctx, app.ID); err != nil {
		return Application{}, errors.Wrap(err, "listing documents")
	}
	if app.Comments, err = svc.CommentRepo.ListComments(ctx, app.ID); err != nil {
		return Application{}, errors.Wrap(err, "listing comments")
	}
	return app, nil
}

// Query lists applications newest first. Students only ever see their own.
func (svc *service) Query(ctx context.Context, requester core.Identity, filter *QueryFilter) ([]Application, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	if filter.Status != "" {
		if _, err := ParseStatus(filter.Status); err != nil {
			return []Application{}, nil
		}
	}
	switch {
	case requester.IsAdmin():
	case requester.IsStudent():
		filter.StudentEmail = requester.Email
	default:
		return nil, core.ErrForbidden
	}

	apps, err := svc.Repo.QueryApplications(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	if len(apps) == 0 {
		return apps, nil
	}

	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	docs, err := svc.DocRepo.ListAllDocuments(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	byApp := make(map[string][]document.Document, len(apps))
	for _, d := range docs {
		byApp[d.ApplicationID] = append(byApp[d.ApplicationID], d)
	}
	for i := range apps {
		apps[i].Documents = byApp[apps[i].ID]
	}
	return apps, nil
}

// ReplaceOrAddDocuments stores a batch of uploads for a still open application.
// A key that already has a record gets its file replaced and its status reset to Submitted.
// Record writes and the progress recomputation share one transaction; the superseded files
// are released after commit, best-effort.
func (svc *service) ReplaceOrAddDocuments(ctx context.Context, requester core.Identity, id string, uploads []document.Upload) (Application, error) {
	app, err := svc.Repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !app.OwnedBy(requester) || !requester.IsStudent() {
		return Application{}, core.ErrForbidden
	}
	if app.Status != StatusSubmitted {
		return Application{}, errors.Wrapf(core.ErrInvalidState, "application is %s", app.Status)
	}

	newDocs, err := svc.storeUploads(ctx, uploads)
	if err != nil {
		return Application{}, err
	}

	var superseded []document.Document
	err = svc.Tx.InTx(ctx, func(exec core.DBExecutor) error {
		current, err := svc.Repo.GetApplication(ctx, id, exec)
		if err != nil {
			return err
		}
		if current.Status != StatusSubmitted {
			return errors.Wrapf(core.ErrInvalidState, "application is %s", current.Status)
		}

		existing, err := svc.DocRepo.ListDocuments(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "listing documents")
		}
		byKey := make(map[string]document.Document, len(existing))
		for _, d := range existing {
			byKey[d.Key] = d
		}

		for _, nd := range newDocs {
			if old, ok := byKey[nd.Key]; ok {
				if err = svc.DocRepo.ReplaceDocumentFile(ctx, old.ID, nd.Filename, nd.UploadedAt, exec); err != nil {
					return errors.Wrap(err, "replacing document file")
				}
				superseded = append(superseded, old)
				old.Filename, old.UploadedAt, old.Status = nd.Filename, nd.UploadedAt, document.StatusSubmitted
				byKey[nd.Key] = old
				continue
			}
			nd.ApplicationID = id
			created, err := svc.DocRepo.CreateDocument(ctx, nd, exec)
			if err != nil {
				return errors.Wrap(err, "inserting document")
			}
			byKey[nd.Key] = created
		}

		all, err := svc.DocRepo.ListDocuments(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "listing documents")
		}
		return errors.Wrap(svc.Repo.UpdateProgress(ctx, id, Progress(all), exec), "updating progress")
	})
	if err != nil {
		svc.releaseFiles(ctx, newDocs)
		return Application{}, err
	}

	svc.releaseFiles(ctx, superseded)
	svc.Metrics.DocumentsUploaded(len(newDocs))
	return svc.Get(ctx, requester, id)
}

// RemoveDocument deletes one document of a still open application and recomputes its progress.
func (svc *service) RemoveDocument(ctx context.Context, requester core.Identity, documentID int64) (Application, error) {
	doc, err := svc.DocRepo.GetDocument(ctx, documentID)
	if err != nil {
		return Application{}, err
	}
	app, err := svc.Repo.GetApplication(ctx, doc.ApplicationID)
	if err != nil {
		return Application{}, err
	}
	if !app.CanView(requester) {
		return Application{}, core.ErrForbidden
	}
	if app.Status != StatusSubmitted {
		return Application{}, errors.Wrapf(core.ErrInvalidState, "application is %s", app.Status)
	}

	err = svc.Tx.InTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.DocRepo.DeleteDocument(ctx, doc.ID, exec); err != nil {
			return errors.Wrap(err, "deleting document")
		}
		all, err := svc.DocRepo.ListDocuments(ctx, app.ID, exec)
		if err != nil {
			return errors.Wrap(err, "listing documents")
		}
		return errors.Wrap(svc.Repo.UpdateProgress(ctx, app.ID, Progress(all), exec), "updating progress")
	})
	if err != nil {
		return Application{}, err
	}

	svc.releaseFiles(ctx, []document.Document{doc})
	return svc.Get(ctx, requester, app.ID)
}

// OpenDocument returns a document and its content to its owner or an admin. The caller closes the reader.
func (svc *service) OpenDocument(ctx context.Context, requester core.Identity, documentID int64) (document.Document, io.ReadCloser, error) {
	doc, err := svc.DocRepo.GetDocument(ctx, documentID)
	if err != nil {
		return document.Document{}, nil, err
	}
	if _, err = svc.get(ctx, requester, doc.ApplicationID); err != nil {
		return document.Document{}, nil, err
	}
	rc, err := svc.Files.Open(ctx, doc.Filename)
	if err != nil {
		return document.Document{}, nil, errors.Wrap(err, "opening stored file")
	}
	return doc, rc, nil
}

func (svc *service) decide(ctx context.Context, requester core.Identity, id string, status Status, reason string) (Application, error) {
	if !requester.IsAdmin() {
		return Application{}, core.ErrForbidden
	}
	app, err := svc.Repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status.IsFinal() && !svc.opts.AllowRedecision {
		return Application{}, errors.Wrapf(core.ErrInvalidState, "application is already %s", app.Status)
	}

	decision := Decision{DecidedAt: core.Now(), DecidedBy: requester.Email, RejectionReason: reason}
	if err = svc.Repo.SetDecision(ctx, id, status, decision); err != nil {
		return Application{}, errors.Wrap(err, "setting decision")
	}
	app.Status = status
	app.Decision = &decision

	svc.Metrics.ApplicationDecided(string(status))
	svc.notifyDecision(app)
	return app, nil
}

func (svc *service) Approve(ctx context.Context, requester core.Identity, id string) (Application, error) {
	return svc.decide(ctx, requester, id, StatusApproved, "")
}

func (svc *service) Reject(ctx context.Context, requester core.Identity, id, reason string) (Application, error) {
	if !requester.IsAdmin() {
		return Application{}, core.ErrForbidden
	}
	reason = core.CleanString(reason)
	if reason == "" {
		return Application{}, core.NewFieldError("reason", "a rejection reason is required")
	}
	return svc.decide(ctx, requester, id, StatusRejected, reason)
}

// Delete removes the application with its documents and comments. Stored files are kept.
func (svc *service) Delete(ctx context.Context, requester core.Identity, id string) error {
	app, err := svc.Repo.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if !app.CanView(requester) {
		return core.ErrForbidden
	}
	return errors.Wrap(svc.Repo.DeleteApplication(ctx, id), "deleting application")
}

func (svc *service) AddComment(ctx context.Context, requester core.Identity, id string, nc comment.NewComment) (comment.Comment, error) {
	if !requester.IsAdmin() {
		return comment.Comment{}, core.ErrForbidden
	}
	if err := nc.Clean(); err != nil {
		return comment.Comment{}, err
	}
	if _, err := svc.Repo.GetApplication(ctx, id); err != nil {
		return comment.Comment{}, err
	}
	c, err := svc.CommentRepo.CreateComment(ctx, comment.Comment{
		ApplicationID: id,
		AuthorEmail:   requester.Email,
		AuthorName:    requester.Name,
		Text:          nc.Text,
		CreatedAt:     core.Now(),
	})
	return c, errors.Wrap(err, "inserting comment")
}

func (svc *service) ListComments(ctx context.Context, requester core.Identity, id string) ([]comment.Comment, error) {
	if _, err := svc.get(ctx, requester, id); err != nil {
		return nil, err
	}
	return svc.CommentRepo.ListComments(ctx, id)
}

type decisionMailData struct {
	ID              string
	StudentName     string
	University      string
	MobilityType    string
	RejectionReason string
}

func (svc *service) notifyDecision(app Application) {
	if svc.MailSvc == nil {
		return
	}
	msg := &core.EmailMessage{
		To: []mail.Address{{Name: app.StudentName, Address: app.StudentEmail}},
		TemplateData: decisionMailData{
			ID:           app.ID,
			StudentName:  app.StudentName,
			University:   app.University,
			MobilityType: app.MobilityType,
		},
	}
	switch app.Status {
	case StatusApproved:
		msg.Subject = "Your mobility application has been approved"
		msg.TemplateName = "application_approved"
	case StatusRejected:
		msg.Subject = "Your mobility application has been rejected"
		msg.TemplateName = "application_rejected"
		data := msg.TemplateData.(decisionMailData)
		data.RejectionReason = app.Decision.RejectionReason
		msg.TemplateData = data
	}
	svc.MailSvc.SendMessages(msg)
}
