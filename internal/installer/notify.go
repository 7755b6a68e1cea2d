package installer

import "github.com/gen2brain/beeep"

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends notifications through the OS notification center.
type DesktopNotifier struct{}

// Notify implements Notifier.
func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}
