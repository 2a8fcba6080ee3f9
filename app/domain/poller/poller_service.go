package poller

import (
	"context"

	"github.com/mileusna/crontab"

	"careertrack.dev/careertrack-go/app/domain/notification"
	"careertrack.dev/careertrack-go/app/utils/logger"
	"careertrack.dev/careertrack-go/config/environment_variables"
)

// Service keeps the unread notification count warm for long-lived consumers
// that have no push channel, polling on a cron schedule.
type Service struct {
	notifications *notification.Service
	onUnread      func(notification.UnreadCount)
	lastCount     int
	seeded        bool
}

// NewService builds a poller. onUnread fires whenever the unread count
// changes between polls; it may be nil.
func NewService(notifications *notification.Service, onUnread func(notification.UnreadCount)) *Service {
	return &Service{
		notifications: notifications,
		onUnread:      onUnread,
	}
}

func (ps *Service) Start(ctx context.Context, ctab *crontab.Crontab) {
	ps.refreshUnread(ctx)

	ctab.AddJob("* * * * *", func() {
		ps.refreshUnread(ctx)
		environment_variables.EnvironmentVariables.LoadFromEnv()
	})
}

func (ps *Service) refreshUnread(ctx context.Context) {
	if ps.notifications == nil {
		return
	}
	count, err := ps.notifications.UnreadNow(ctx)
	if err != nil {
		logger.GetLogger().Warnf("poller: unable to refresh unread count: %v", err)
		return
	}
	if ps.seeded && count.Count == ps.lastCount {
		return
	}
	ps.seeded = true
	ps.lastCount = count.Count
	if ps.onUnread != nil {
		ps.onUnread(count)
	}
}
