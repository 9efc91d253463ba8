package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Command sigil: any line starting with this byte is interpreted as a
// command instead of chat text.
const Sigil = "/"

const (
	CmdNick = "/nick"
	CmdList = "/list"
	CmdDM   = "/dm"
)

// Error replies sent back to the offending peer only.
const (
	ErrUserNotFound       = "User not found"
	ErrUnsupportedCommand = "Unsupported command"
	ErrNickUsage          = "Usage: /nick <name>"
	ErrDMUsage            = "Usage: /dm <nickname> <message>"
)

// Command is one parsed slash-command: the command token and the raw
// argument text after the first space (may be empty).
type Command struct {
	Name string
	Arg  string
}

// IsCommand reports whether a trimmed line should be dispatched as a command.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, Sigil)
}

// TrimLine strips surrounding whitespace, including the \r left by clients
// that terminate lines with CRLF.
func TrimLine(line string) string {
	return strings.TrimSpace(line)
}

// ParseCommand splits a command line into its token and argument text on the
// first space. The argument keeps its internal spacing.
func ParseCommand(line string) (Command, bool) {
	line = TrimLine(line)
	if !IsCommand(line) {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line, " ")
	return Command{Name: name, Arg: strings.TrimSpace(arg)}, true
}

// ParseDMArg splits the /dm argument into target nickname and message text.
// Format: "<nickname> <message>"; both parts are required.
func ParseDMArg(arg string) (target, message string, ok bool) {
	target, message, found := strings.Cut(strings.TrimSpace(arg), " ")
	message = strings.TrimSpace(message)
	if !found || target == "" || message == "" {
		return "", "", false
	}
	return target, message, true
}

// Timestamp returns the capture-time local timestamp prefix. It is computed
// at send time: two messages processed back to back may carry different
// timestamps.
func Timestamp(t time.Time) string {
	return t.Format("[15:04:05]")
}

// FormatChat formats a chat line for fan-out: "[HH:MM:SS] nick> text".
func FormatChat(t time.Time, nick, text string) string {
	return fmt.Sprintf("%s %s> %s\n", Timestamp(t), nick, text)
}

// FormatDM formats a direct message for the target peer only.
func FormatDM(t time.Time, fromNick, message string) string {
	return fmt.Sprintf("%s DM from %s: %s\n", Timestamp(t), fromNick, message)
}

// FormatReply formats a server reply (errors, confirmations, /list output)
// addressed to a single peer.
func FormatReply(t time.Time, text string) string {
	return fmt.Sprintf("%s %s\n", Timestamp(t), text)
}

// FormatListSummary formats the count line terminating /list output.
func FormatListSummary(n int) string {
	return fmt.Sprintf("Number of connected users: %d", n)
}

// DefaultNickname derives the initial nickname from a peer id, before the
// peer renames itself with /nick.
func DefaultNickname(id int64) string {
	return fmt.Sprintf("user:%d", id)
}
