package netchat

import "github.com/gen2brain/beeep"

// SystemNotifier delivers notifications through the desktop's native
// facility. It backs the OS-level alerts raised for unfocused private
// messages.
type SystemNotifier struct {
	// Icon is an optional path to the notification icon.
	Icon string
}

func (n SystemNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, n.Icon)
}
