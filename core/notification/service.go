package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/prefs"
	"github.com/trezcool/chuo/core/user"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		QueryNotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		// MarkNotificationsRead flags the given notifications of a user as read;
		// no ids means all of them. It reports how many were flagged.
		MarkNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nn NewNotification) (Notification, error)
		QueryForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		MarkRead(ctx context.Context, userID, id string) error
		MarkAllRead(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo      Repository
		usrRepo   user.Repository
		prefsRepo prefs.Repository
		mailSvc   core.EmailService
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, prefsRepo prefs.Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:      repo,
		usrRepo:   usrRepo,
		prefsRepo: prefsRepo,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

// Create persists the notification, then fans out an email unless the
// recipient opted out of email notifications.
func (svc *service) Create(ctx context.Context, nn NewNotification) (Notification, error) {
	rcpt, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: nn.RecipientID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Notification{}, core.NewValidationError(err, core.FieldError{Field: "recipient_id", Error: err.Error()})
		}
		return Notification{}, errors.Wrap(err, "finding recipient")
	}

	n := Notification{
		RecipientID: rcpt.ID,
		Title:       nn.Title,
		Message:     nn.Message,
		CreatedAt:   time.Now().UTC(),
	}
	n, err = svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	if svc.emailWanted(ctx, rcpt.ID) {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
			Subject:      n.Title,
			TemplateName: "notification",
			TemplateData: struct {
				Name    string
				Title   string
				Message string
			}{
				Name:    rcpt.Name,
				Title:   n.Title,
				Message: n.Message,
			},
		})
	}
	return n, nil
}

func (svc *service) emailWanted(ctx context.Context, userID string) bool {
	p, err := svc.prefsRepo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Cause(err) == prefs.ErrNotFound {
			return prefs.Default(userID).EmailNotifications
		}
		svc.logger.Warn("reading notification preferences", err)
		return false
	}
	return p.EmailNotifications
}

func (svc *service) QueryForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotificationsForUser(ctx, userID, unreadOnly)
}

func (svc *service) MarkRead(ctx context.Context, userID, id string) error {
	cnt, err := svc.repo.MarkNotificationsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkNotificationsRead(ctx, userID)
}
