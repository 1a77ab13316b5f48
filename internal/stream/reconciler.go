package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/session"
)

const reportMaxChars = 500

// Reconcile patches up a session after its live stream ended, from the hub's
// stored record. It only ever touches the session that is still active, so a
// stale reconcile scheduled before the user switched sessions is a no-op.
func Reconcile(ctx context.Context, c *api.Client, repo *session.Repo, sessionID string) error {
	if repo.ActiveID() != sessionID {
		return nil
	}
	s, ok := repo.Get(sessionID)
	if !ok {
		return nil
	}

	detail, err := c.SessionDetail(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session detail: %w", err)
	}

	// the stream is over, so the hub's "active" means it already completed
	status := session.TranslateStatus(detail.Status, false)
	if !s.Status.Terminal() {
		s.Status = status
	}
	if s.Task == "" {
		s.Task = detail.Task
	}
	if s.FinalReport == "" && detail.FinalReport != "" {
		s.FinalReport = detail.FinalReport
	}
	if s.Error == "" && detail.Error != "" {
		s.Error = detail.Error
	}

	if status == session.StatusCompleted && !hasAssistantText(s) {
		// the local transcript missed the run's output; backfill it from
		// the hub's persisted live-state
		ls, err := c.LiveState(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("live state: %w", err)
		}
		backfillMessages(s, ls)
	}
	return nil
}

func hasAssistantText(s *session.Session) bool {
	for _, m := range s.Messages {
		if m.Role == "assistant" && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

// backfillMessages merges the live-state transcript into the session without
// disturbing agents, stations or plan: those reflect what actually streamed.
func backfillMessages(s *session.Session, ls *api.LiveState) {
	snap := ls.Snapshot()
	var lastAssistant string
	for _, ms := range snap.Messages {
		if strings.TrimSpace(ms.Content) == "" {
			continue
		}
		if ms.Role == "assistant" {
			lastAssistant = ms.Content
		}
		if id := ms.ID(); id != "" {
			if exists := hasMessage(s, id); exists {
				continue
			}
		}
		ts, _ := time.Parse(time.RFC3339, ms.Timestamp)
		s.Messages = append(s.Messages, &session.Message{
			ID:        ms.ID(),
			Role:      ms.Role,
			Content:   ms.Content,
			Timestamp: ts,
		})
	}
	if s.FinalReport == "" && lastAssistant != "" {
		s.FinalReport = truncateReport(lastAssistant, reportMaxChars)
	}
}

func hasMessage(s *session.Session, id string) bool {
	for _, m := range s.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func truncateReport(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "…"
}
