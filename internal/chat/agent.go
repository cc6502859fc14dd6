// Package chat answers patient questions about their reports.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/store"
)

// DefaultWindow is the number of recent messages included in a prompt.
const DefaultWindow = 6

const maxMessageLen = 4000

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
)

// Agent keeps a per-patient transcript and replies to new messages, using the
// patient's current report as context.
type Agent struct {
	enhancer    *enhance.Enhancer
	transcripts store.Transcripts
	snapshots   store.Snapshots
	window      int
	log         *slog.Logger
}

func NewAgent(enhancer *enhance.Enhancer, transcripts store.Transcripts, snapshots store.Snapshots, window int, log *slog.Logger) *Agent {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Agent{
		enhancer:    enhancer,
		transcripts: transcripts,
		snapshots:   snapshots,
		window:      window,
		log:         log,
	}
}

// Reply records the user's message, produces an answer and records it too.
func (a *Agent) Reply(ctx context.Context, patientID, message string) (store.Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return store.Message{}, ErrEmptyMessage
	}
	if len(message) > maxMessageLen {
		return store.Message{}, fmt.Errorf("%w: exceeds %d bytes", ErrMessageTooLong, maxMessageLen)
	}

	if err := a.transcripts.AppendMessages(ctx, patientID, store.NewMessage(store.RoleUser, message)); err != nil {
		return store.Message{}, fmt.Errorf("record user message: %w", err)
	}

	text := fallbackReply(message)
	if a.enhancer.Available() {
		prompt, err := a.prompt(ctx, patientID)
		if err != nil {
			return store.Message{}, err
		}
		if generated, err := a.enhancer.Generate(ctx, prompt); err == nil {
			text = generated
		} else {
			a.log.Warn("chat generation failed, using fallback", "patient_id", patientID, "error", err)
		}
	}

	reply := store.NewMessage(store.RoleAssistant, text)
	if err := a.transcripts.AppendMessages(ctx, patientID, reply); err != nil {
		return store.Message{}, fmt.Errorf("record reply: %w", err)
	}
	return reply, nil
}

// History returns the last limit messages, oldest first.
func (a *Agent) History(ctx context.Context, patientID string, limit int) ([]store.Message, error) {
	msgs, err := a.transcripts.Messages(ctx, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return msgs, nil
}

func (a *Agent) prompt(ctx context.Context, patientID string) (string, error) {
	history, err := a.transcripts.Messages(ctx, patientID, a.window)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}

	snap, err := a.snapshots.LatestSnapshot(ctx, patientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load report context: %w", err)
	}
	return buildPrompt(history, snap), nil
}

func buildPrompt(history []store.Message, snap *store.Snapshot) string {
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	if snap != nil {
		ctxJSON, err := json.Marshal(snap.Report)
		if err == nil {
			sb.WriteString("\nUse this report context:\n")
			sb.Write(ctxJSON)
			sb.WriteString("\n\nNever ask user to upload report again.\n")
		}
	}
	return sb.String()
}

// fallbackReply answers by keyword when no generated reply is available.
func fallbackReply(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "amh"):
		return "Your AMH seems important. I can summarize your AMH report or explain the meaning."
	case strings.Contains(m, "fsh"):
		return "FSH helps evaluate fertility and hormone balance."
	case strings.Contains(m, "symptom"):
		return "Please describe your symptoms clearly (e.g., fatigue + dizziness)."
	}
	return "I am here to help. Please ask about your reports, tests or symptoms."
}
