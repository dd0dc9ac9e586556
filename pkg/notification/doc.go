// Package notification sends notices such as new-login alerts.
//
// A NotificationManager maps a (NoticeType, NotificationSystem) pair to a
// NoticeTemplate and a Notifier. Email is delivered with go-mail:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//		notification.WithSMTP(notification.SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com"}),
//		notification.WithLoginAlertTemplate(),
//	)
//
// LoginAlertListener plugs into the login listener chain. It queues the
// alert and always allows the login.
package notification
