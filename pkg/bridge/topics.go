package bridge

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "ba-assistant"

// Topics builds topic names under a prefix.
type Topics struct {
	Prefix string
}

// Event returns the topic for a notification.
//
// Example: ba-assistant/event/sink-found
func (t Topics) Event(name string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix(), name)
}

// Command returns the topic for a command.
//
// Example: ba-assistant/command/start-sink-scan
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix(), name)
}

// Commands returns the wildcard matching every command topic.
func (t Topics) Commands() string {
	return t.prefix() + "/command/+"
}

// Status returns the retained presence topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// CommandName extracts the command from a command topic.
func (t Topics) CommandName(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, t.prefix()+"/command/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}
