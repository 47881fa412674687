package platform

// AppName is reported to the notification service.
const AppName = "PhotoEdit"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file the notification center
	// should display with the notification if supported by the platform.
	IconPath string
	// Urgent asks the notification center to keep the message on screen.
	Urgent bool
}
