package topic

import (
	"fmt"
	"strings"
)

const (
	// Wildcard matches exactly one topic level.
	Wildcard = "+"
	// MultiWildcard matches the remaining levels and must come last.
	MultiWildcard = "#"
)

// Builder constructs topic strings of the form {root}/{segment}/{identifier}.
// Segments are defined by the callers (see internal/pkg/mqtt/paths).
type Builder struct {
	// root is the base namespace for all topics (e.g., "paramsync/v1").
	root string

	// group, when set, turns subscriptions into MQTT v5 shared subscriptions.
	group string
}

// NewBuilder creates a Builder rooted at root. Trailing slashes are trimmed.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimRight(root, "/")}
}

// Shared returns a copy of b that prefixes topics with $share/{group}/.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, group: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return b.share(fmt.Sprintf("%s/%s/%s", b.root, segment, id))
}

// BuildWildcard returns {root}/{segment}/+ for subscribing to every identifier.
func (b *Builder) BuildWildcard(segment string) string {
	return b.Build(segment, Wildcard)
}

// ParseID extracts the identifier from a concrete topic built for segment.
// The $share prefix is never present on received topics.
func (b *Builder) ParseID(segment, topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", b.root, segment)
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (b *Builder) share(t string) string {
	if b.group == "" {
		return t
	}
	return fmt.Sprintf("$share/%s/%s", b.group, t)
}
