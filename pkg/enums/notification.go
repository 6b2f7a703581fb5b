package enums

// NotificationType labels persisted notification records.
type NotificationType string

const (
	NotificationOrderConfirmed NotificationType = "order_confirmed"
	NotificationOrderDelivered NotificationType = "order_delivered"
)

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationOrderConfirmed, NotificationOrderDelivered:
		return true
	}
	return false
}
