// Package telegram provides Telegram Bot API integration for sending project notifications.
//
// Messages are delivered with a single GET to the sendMessage method, using legacy
// markdown parse mode and with link previews disabled. No external dependencies
// required - uses only the standard library.
//
// Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
