package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// NotificationService sends desktop notifications for job events
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if n.config == nil || !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var name string
	var args []string
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
		if n.config.Sound {
			script += ` sound name "default"`
		}
		name, args = "osascript", []string{"-e", script}
	case "notify-send":
		name, args = "notify-send", []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyJobStarted sends notification when a download job starts
func (n *NotificationService) NotifyJobStarted(url string) {
	n.Send("Download Started", fmt.Sprintf("Processing: %s", truncateString(url, 40)))
}

// NotifyJobCompleted sends notification when a download job succeeds
func (n *NotificationService) NotifyJobCompleted(url string, files int) {
	n.Send("Download Completed", fmt.Sprintf("%d file(s) from %s", files, truncateString(url, 40)))
}

// NotifyJobFailed sends notification when a download job fails
func (n *NotificationService) NotifyJobFailed(url string, err error) {
	n.Send("Download Failed", fmt.Sprintf("Failed: %s", truncateString(url, 40)))
}

// NotifyExportCompleted sends notification when a dataset export finishes
func (n *NotificationService) NotifyExportCompleted(dataset string, images int) {
	n.Send("Export Completed", fmt.Sprintf("%d images from %s", images, dataset))
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
