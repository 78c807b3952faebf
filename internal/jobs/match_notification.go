package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/notifier"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/store"
	"go.uber.org/zap"
)

// JobMatchNotification is the registry name of MatchNotification
const JobMatchNotification = "match_notification"

const markNotifiedTimeout = 10 * time.Second

// MatchNotification emails a freelancer about an offer matching their
// profile. The first task to create the match log row owns delivery; the
// row is marked notified once the email is sent, so any later attempt of
// the owning task resends until that happens.
type MatchNotification struct {
	OfferID   string `json:"offer_id"`
	ProfileID string `json:"profile_id"`
}

func (MatchNotification) JobName() string { return JobMatchNotification }

func (MatchNotification) Policy() queue.Policy {
	return queue.Policy{
		MaxAttempts: 3,
		Timeout:     120 * time.Second,
		Backoff:     []time.Duration{60 * time.Second, 120 * time.Second, 300 * time.Second},
	}
}

func (MatchNotification) UniqueKey() string { return "" }

// MatchSender delivers the match email
type MatchSender interface {
	SendMatch(ctx context.Context, user *models.User, offer *models.ServiceOffer) error
}

// MatchNotificationHandler executes MatchNotification tasks
type MatchNotificationHandler struct {
	store  store.Store
	mailer MatchSender
	logger *logging.SafeLogger
}

func NewMatchNotificationHandler(s store.Store, mailer MatchSender) *MatchNotificationHandler {
	return &MatchNotificationHandler{store: s, mailer: mailer, logger: logging.Logger.Named("notifications")}
}

func (h *MatchNotificationHandler) Handle(ctx context.Context, task *queue.Task) error {
	var job MatchNotification
	if err := task.Decode(&job); err != nil {
		return err
	}
	log := h.logger.With(
		zap.String("offer_id", job.OfferID),
		zap.String("profile_id", job.ProfileID),
		zap.Int("attempt", task.Attempts),
	)

	offer, err := h.store.FindOffer(ctx, job.OfferID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("offer not found, skipping match notification")
		observability.MatchNotifications.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load offer: %w", err)
	}

	pw, err := h.store.FindProfileWithUser(ctx, job.ProfileID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && pw.User == nil) {
		log.Warn("profile or its user not found, skipping match notification")
		observability.MatchNotifications.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	log = log.With(zap.String("user_id", pw.User.ID), zap.String("email", observability.MaskEmail(pw.User.Email)))

	created, err := h.store.CreateMatchLog(ctx, &models.MatchLog{
		OfferID:   offer.ID,
		UserID:    pw.User.ID,
		ProfileID: pw.Profile.ID,
		TaskID:    task.ID,
	})
	if err != nil {
		return fmt.Errorf("create match log: %w", err)
	}
	if !created {
		existing, err := h.store.FindMatchLog(ctx, offer.ID, pw.User.ID)
		if err != nil {
			return fmt.Errorf("load match log: %w", err)
		}
		if existing.Delivered() || existing.TaskID != task.ID {
			log.Info("user already notified about offer")
			observability.MatchNotifications.WithLabelValues("duplicate").Inc()
			return nil
		}
		log.Info("match log claimed by an earlier attempt, resending")
	}

	if err := h.mailer.SendMatch(ctx, pw.User, offer); err != nil {
		if errors.Is(err, notifier.ErrNoRecipient) {
			log.Warn("user has no email address, skipping match notification")
			observability.MatchNotifications.WithLabelValues("skipped").Inc()
			return nil
		}
		log.Warn("failed to send match email", zap.Error(err))
		return fmt.Errorf("send match email: %w", err)
	}

	// recorded even when the attempt timed out while the send completed
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markNotifiedTimeout)
	defer cancel()
	if err := h.store.MarkMatchLogNotified(markCtx, offer.ID, pw.User.ID, time.Now()); err != nil {
		log.Error("email sent but match log not marked notified", zap.Error(err))
	}

	log.Info("match notification sent")
	observability.MatchNotifications.WithLabelValues("sent").Inc()
	return nil
}
