package notification

import "context"

// NotificationSystem is a delivery channel.
type NotificationSystem string

// NoticeType names a kind of notice, e.g. a new-login alert.
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	LoginAlertNotice NoticeType = "login_alert"
)

type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address)
	Data map[string]string // Template values
}

// NoticeTemplate holds the subject and bodies for a notice. Text and Html
// are Go templates executed with NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
