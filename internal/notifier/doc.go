// Package notifier provides notification channels for new Ponisha projects.
//
// Each channel implements Notifier and delivers one project per call. The default
// channel is a Telegram chat; a dry-run channel prints messages instead of sending
// them, and a Twitter channel posts a short status per project.
package notifier
