package types

// NotificationStatus is the delivery state recorded in notification history
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// String returns the string representation of the notification status
func (s NotificationStatus) String() string {
	return string(s)
}
