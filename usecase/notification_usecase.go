package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

const digestEmailTemplate = "alert-digest"

type INotificationUsecase interface {
	// Dispatch mails the alert now or queues it for the user's digest.
	Dispatch(ctx context.Context, alert *model.MonitoringAlert) error
	// FlushDigests sends one digest per user with pending notifications of the frequency
	// and returns how many digests went out.
	FlushDigests(ctx context.Context, frequency model.NotificationFrequency) (int, error)
	GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error)
	SetPreference(ctx context.Context, pref *model.NotificationPreference) (*model.NotificationPreference, error)
}

type notificationUsecase struct {
	repo     repository.INotification
	notifier Notifier
	limiter  IRateLimiter
	clock    clock.Clock
	metrics  Metrics
	newID    IDGenerator
	linkBase string
}

// NewNotificationUsecase wires the dispatcher. dashboardURL, when set, is linked from every e-mail.
func NewNotificationUsecase(repo repository.INotification, notifier Notifier, limiter IRateLimiter, clk clock.Clock, metrics Metrics, dashboardURL string) INotificationUsecase {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &notificationUsecase{
		repo:     repo,
		notifier: notifier,
		limiter:  limiter,
		clock:    clk,
		metrics:  metrics,
		newID:    uuid.NewString,
		linkBase: dashboardURL,
	}
}

func (u *notificationUsecase) GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error) {
	pref, err := u.repo.GetPreference(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.NotificationPreference{UserID: userID, Frequency: model.NotifyImmediate}, nil
	}
	if err != nil {
		return nil, err
	}
	if pref.Frequency == "" {
		pref.Frequency = model.NotifyImmediate
	}
	return pref, nil
}

func (u *notificationUsecase) SetPreference(ctx context.Context, pref *model.NotificationPreference) (*model.NotificationPreference, error) {
	if pref == nil || pref.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", model.ErrInvalidPreference)
	}
	switch pref.Frequency {
	case model.NotifyImmediate, model.NotifyHourly, model.NotifyDaily:
	case "":
		pref.Frequency = model.NotifyImmediate
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", model.ErrInvalidPreference, pref.Frequency)
	}
	if pref.Email != "" {
		if _, err := mail.ParseAddress(pref.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidPreference, err)
		}
	}
	pref.UpdatedAt = u.clock.Now()
	if err := u.repo.SavePreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("save notification preference: %w", err)
	}
	return pref, nil
}

func (u *notificationUsecase) Dispatch(ctx context.Context, alert *model.MonitoringAlert) error {
	pref, err := u.GetPreference(ctx, alert.UserID)
	if err != nil {
		return fmt.Errorf("load notification preference: %w", err)
	}
	log := logger.GetLogger().WithField("user_id", alert.UserID).WithField("alert_id", alert.ID)

	if pref.Frequency != model.NotifyImmediate {
		return u.repo.Enqueue(ctx, &model.QueuedNotification{
			ID:        u.newID(),
			UserID:    alert.UserID,
			AlertID:   alert.ID,
			Subject:   alertSubject(alert),
			Body:      alertBody(alert),
			Frequency: pref.Frequency,
			CreatedAt: u.clock.Now(),
		})
	}

	if pref.Email == "" {
		log.Debug("no e-mail address on file, skipping alert e-mail")
		return nil
	}
	if u.limiter != nil && u.limiter.IsLimited(ctx, alert.UserID, model.RateLimitEmail) {
		log.Warn("alert e-mail skipped: e-mail rate limit reached")
		return nil
	}
	err = u.notifier.SendEmail(ctx, pref.Email, alertSubject(alert), alertEmailTemplate, map[string]interface{}{
		"alert":        alert,
		"body":         alertBody(alert),
		"dashboardUrl": u.linkBase,
	})
	u.metrics.NotificationSent("email", err == nil)
	return err
}

func (u *notificationUsecase) FlushDigests(ctx context.Context, frequency model.NotificationFrequency) (int, error) {
	pending, err := u.repo.Pending(ctx, frequency)
	if err != nil {
		return 0, fmt.Errorf("load pending %s notifications: %w", frequency, err)
	}

	var order []string
	byUser := make(map[string][]*model.QueuedNotification)
	for _, n := range pending {
		if _, seen := byUser[n.UserID]; !seen {
			order = append(order, n.UserID)
		}
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}

	sent := 0
	var errs []error
	for _, userID := range order {
		ok, err := u.sendDigest(ctx, userID, frequency, byUser[userID])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

// sendDigest leaves items queued when the user cannot be mailed yet.
func (u *notificationUsecase) sendDigest(ctx context.Context, userID string, frequency model.NotificationFrequency, items []*model.QueuedNotification) (bool, error) {
	log := logger.GetLogger().WithField("user_id", userID).WithField("frequency", frequency)
	pref, err := u.GetPreference(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("digest for %s: %w", userID, err)
	}
	if pref.Email == "" {
		log.Warn("digest held: no e-mail address on file")
		return false, nil
	}
	if u.limiter != nil && u.limiter.IsLimited(ctx, userID, model.RateLimitEmail) {
		log.Warn("digest held: e-mail rate limit reached")
		return false, nil
	}

	entries := make([]map[string]interface{}, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, n := range items {
		entries = append(entries, map[string]interface{}{
			"alertId":   n.AlertID,
			"subject":   n.Subject,
			"body":      n.Body,
			"createdAt": n.CreatedAt,
		})
		ids = append(ids, n.ID)
	}
	subject := fmt.Sprintf("Alert digest (%s): %d alert(s)", frequency, len(items))
	err = u.notifier.SendEmail(ctx, pref.Email, subject, digestEmailTemplate, map[string]interface{}{
		"frequency":    string(frequency),
		"count":        len(items),
		"items":        entries,
		"dashboardUrl": u.linkBase,
	})
	u.metrics.NotificationSent("digest", err == nil)
	if err != nil {
		return false, fmt.Errorf("send %s digest to %s: %w", frequency, userID, err)
	}
	if err := u.repo.MarkSent(ctx, ids, u.clock.Now()); err != nil {
		log.WithField("error", err).Warn("digest sent but items could not be marked sent")
	}
	return true, nil
}
