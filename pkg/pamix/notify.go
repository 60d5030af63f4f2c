package pamix

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier sends desktop notifications through beeep. It stays quiet
// until enabled, so one-shot commands don't pop toasts by surprise.
type ToastNotifier struct {
	logger  *zap.SugaredLogger
	enabled bool
}

// NewToastNotifier creates a new, disabled ToastNotifier
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	logger = logger.Named("notifier")
	tn := &ToastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

// SetEnabled turns notification delivery on or off
func (tn *ToastNotifier) SetEnabled(enabled bool) {
	tn.enabled = enabled
}

// Notify sends a toast notification if enabled
func (tn *ToastNotifier) Notify(title string, message string) {
	if !tn.enabled {
		tn.logger.Debugw("Notifications disabled, skipping", "title", title)
		return
	}

	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, ""); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", err)
	}
}
