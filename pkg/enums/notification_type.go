package enums

import "fmt"

// NotificationType groups notifications by the surface they belong to.
type NotificationType string

const (
	NotificationTypeOrder        NotificationType = "order"
	NotificationTypeInventory    NotificationType = "inventory"
	NotificationTypePrescription NotificationType = "prescription"
	NotificationTypeAccount      NotificationType = "account"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypeInventory,
	NotificationTypePrescription,
	NotificationTypeAccount,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
