package dashboard

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
)

const (
	latestApplications  = 10
	latestAnnouncements = 5
)

type (
	Student struct {
		Applications      []application.Application    `json:"applications"`
		TotalDocuments    int                          `json:"total_documents"`
		RequiredDocuments int                          `json:"required_documents"`
		Pending           int                          `json:"pending"`
		Approved          int                          `json:"approved"`
		LatestDocuments   map[string]document.Document `json:"latest_documents"` // most recent application, by key
		Requirements      []application.Requirement    `json:"requirements"`
		Announcements     []announcement.Announcement  `json:"announcements"`
		UnreadMessages    int                          `json:"unread_messages"`
	}

	AdminStats struct {
		StudentsTotal        int `json:"students_total"`
		ApplicationsPending  int `json:"applications_pending"`
		ApplicationsApproved int `json:"applications_approved"`
		ApplicationsRejected int `json:"applications_rejected"`
		DocumentsTotal       int `json:"documents_total"`
		UnreadMessages       int `json:"unread_messages"`
		AnnouncementsTotal   int `json:"announcements_total"`
	}

	Admin struct {
		Applications        []application.Application   `json:"applications"` // filtered
		Stats               AdminStats                  `json:"stats"`
		LatestApplications  []application.Application   `json:"latest_applications"`
		LatestAnnouncements []announcement.Announcement `json:"latest_announcements"`
	}

	MonthlyStat struct {
		Month    string `json:"month"` // YYYY-MM
		Total    int    `json:"total"`
		Approved int    `json:"approved"`
		Rejected int    `json:"rejected"`
	}

	DocumentStat struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Count int    `json:"count"` // applications holding at least one document of this key
	}

	Statistics struct {
		Monthly       []MonthlyStat  `json:"monthly"`
		MobilityTypes map[string]int `json:"mobility_types"`
		Documents     []DocumentStat `json:"documents"`
	}
)

type (
	Service interface {
		Student(ctx context.Context, requester core.Identity) (Student, error)
		Admin(ctx context.Context, requester core.Identity, filter *application.QueryFilter) (Admin, error)
		Statistics(ctx context.Context, requester core.Identity) (Statistics, error)
	}

	service struct {
		appSvc  application.Service
		annSvc  announcement.Service
		msgSvc  message.Service
		usrRepo user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(appSvc application.Service, annSvc announcement.Service, msgSvc message.Service, usrRepo user.Repository) Service {
	return &service{appSvc: appSvc, annSvc: annSvc, msgSvc: msgSvc, usrRepo: usrRepo}
}

func (svc *service) Student(ctx context.Context, requester core.Identity) (Student, error) {
	if !requester.IsStudent() {
		return Student{}, core.ErrForbidden
	}
	apps, err := svc.appSvc.Query(ctx, requester, nil)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying applications")
	}
	anns, err := svc.annSvc.Query(ctx, latestAnnouncements)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying announcements")
	}
	unread, err := svc.msgSvc.UnreadCount(ctx, requester)
	if err != nil {
		return Student{}, errors.Wrap(err, "counting unread messages")
	}

	d := Student{
		Applications:      apps,
		RequiredDocuments: application.TotalRequirements() * max(len(apps), 1),
		LatestDocuments:   map[string]document.Document{},
		Requirements:      application.Requirements(),
		Announcements:     anns,
		UnreadMessages:    unread,
	}
	for _, app := range apps {
		d.TotalDocuments += len(app.Documents)
		switch app.Status {
		case application.StatusSubmitted:
			d.Pending++
		case application.StatusApproved:
			d.Approved++
		}
	}
	if len(apps) > 0 {
		d.LatestDocuments = document.LatestByKey(apps[0].Documents) // apps are newest first
	}
	return d, nil
}

func (svc *service) Admin(ctx context.Context, requester core.Identity, filter *application.QueryFilter) (Admin, error) {
	if !requester.IsAdmin() {
		return Admin{}, core.ErrForbidden
	}
	all, err := svc.appSvc.Query(ctx, requester, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying applications")
	}
	filtered := all
	if filter != nil && *filter != (application.QueryFilter{}) {
		if filtered, err = svc.appSvc.Query(ctx, requester, filter); err != nil {
			return Admin{}, errors.Wrap(err, "filtering applications")
		}
	}
	students, err := svc.usrRepo.QueryUsers(ctx, &user.QueryFilter{Role: core.RoleStudent}, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying students")
	}
	anns, err := svc.annSvc.Query(ctx, 0)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying announcements")
	}
	unread, err := svc.msgSvc.UnreadCount(ctx, requester)
	if err != nil {
		return Admin{}, errors.Wrap(err, "counting unread messages")
	}

	d := Admin{
		Applications: filtered,
		Stats: AdminStats{
			StudentsTotal:      len(students),
			UnreadMessages:     unread,
			AnnouncementsTotal: len(anns),
		},
		LatestApplications:  all[:min(len(all), latestApplications)],
		LatestAnnouncements: anns[:min(len(anns), latestAnnouncements)],
	}
	for _, app := range all {
		d.Stats.DocumentsTotal += len(app.Documents)
		switch app.Status {
		case application.StatusSubmitted:
			d.Stats.ApplicationsPending++
		case application.StatusApproved:
			d.Stats.ApplicationsApproved++
		case application.StatusRejected:
			d.Stats.ApplicationsRejected++
		}
	}
	return d, nil
}

func (svc *service) Statistics(ctx context.Context, requester core.Identity) (Statistics, error) {
	if !requester.IsAdmin() {
		return Statistics{}, core.ErrForbidden
	}
	apps, err := svc.appSvc.Query(ctx, requester, nil)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "querying applications")
	}
	return ComputeStatistics(apps), nil
}

// ComputeStatistics aggregates apps (with their documents) per month, mobility type and checklist entry.
func ComputeStatistics(apps []application.Application) Statistics {
	monthly := make(map[string]*MonthlyStat)
	stats := Statistics{MobilityTypes: make(map[string]int)}

	keyCounts := make(map[string]int)
	for _, app := range apps {
		month := app.SubmittedDate.Format("2006-01")
		if app.SubmittedDate.IsZero() {
			month = app.CreatedAt.Format("2006-01")
		}
		ms, ok := monthly[month]
		if !ok {
			ms = &MonthlyStat{Month: month}
			monthly[month] = ms
		}
		ms.Total++
		switch app.Status {
		case application.StatusApproved:
			ms.Approved++
		case application.StatusRejected:
			ms.Rejected++
		}

		stats.MobilityTypes[app.MobilityType]++

		for key := range document.LatestByKey(app.Documents) {
			keyCounts[key]++
		}
	}

	stats.Monthly = make([]MonthlyStat, 0, len(monthly))
	for _, ms := range monthly {
		stats.Monthly = append(stats.Monthly, *ms)
	}
	sort.Slice(stats.Monthly, func(i, j int) bool { return stats.Monthly[i].Month < stats.Monthly[j].Month })

	for _, req := range application.Requirements() {
		stats.Documents = append(stats.Documents, DocumentStat{Key: req.Key, Label: req.Label, Count: keyCounts[req.Key]})
	}
	return stats
}
