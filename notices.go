package gtfsstrip

import (
	"fmt"
	"log/slog"
	"slices"
)

// Notices is the ordered, human-readable progress log of a run. Every notice is
// also logged at info level.
type Notices struct {
	logger *slog.Logger
	lines  []string
}

func NewNotices(logger *slog.Logger) *Notices {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notices{logger: logger}
}

func (n *Notices) Add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	n.logger.Info(msg)
	n.lines = append(n.lines, msg)
}

func (n *Notices) Lines() []string {
	return slices.Clone(n.lines)
}

func (n *Notices) append(other *Notices) {
	n.lines = append(n.lines, other.lines...)
}
