package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/loginapp/pkg/login"
	"github.com/tendant/loginapp/pkg/queue"
)

// LoginAlertListener emails a new-login alert to the account's address.
// Sending happens on the queue, so a slow mail server never delays a login.
// It never vetoes.
type LoginAlertListener struct {
	manager *NotificationManager
	queue   *queue.Queue
	now     func() time.Time
}

func NewLoginAlertListener(manager *NotificationManager, q *queue.Queue) *LoginAlertListener {
	return &LoginAlertListener{manager: manager, queue: q, now: time.Now}
}

func (l *LoginAlertListener) Veto(ctx context.Context, result *login.LoginResult) bool {
	if !strings.Contains(result.ID, "@") {
		slog.Debug("Skipping login alert, id is not an email", "id", result.ID)
		return true
	}

	data := NotificationData{
		To: result.ID,
		Data: map[string]string{
			"ID":   result.ID,
			"Name": displayName(result),
			"Org":  result.Org,
			"Time": l.now().UTC().Format(time.RFC1123),
		},
	}
	queued := l.queue.Enqueue(queue.Task{
		Name: fmt.Sprintf("login-alert:%s", result.ID),
		Run: func(ctx context.Context) error {
			return l.manager.Send(ctx, LoginAlertNotice, EmailSystem, data)
		},
	})
	if !queued {
		slog.Warn("Login alert not queued, queue closed", "id", result.ID)
	}
	return true
}

func displayName(result *login.LoginResult) string {
	if result.Name != "" {
		return result.Name
	}
	return result.ID
}
