package memory

import (
	"context"
	"fmt"
	"strings"
)

// Summary renders a comprehensive, human-readable account of what the
// character remembers about a user, for the /characters/:id/memory-summary
// endpoint. It reuses the same context bundle the orchestrator assembles
// prompts from rather than querying storage separately.
func (e *Engine) Summary(ctx context.Context, characterID, userID string) (string, error) {
	bundle, err := e.GetContext(ctx, GetContextRequest{
		CharacterID:      characterID,
		UserID:           userID,
		ConversationID:   "summary",
		IncludeEmotional: true,
		MaxMemories:      20,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder

	pd := bundle.PersonalDetails
	if pd.Name != "" || pd.Age != "" || pd.Location != "" || pd.Work != "" || len(pd.FamilyMembers) > 0 || len(pd.Pets) > 0 {
		b.WriteString("Personal details:\n")
		if pd.Name != "" {
			fmt.Fprintf(&b, "- Name: %s\n", pd.Name)
		}
		if pd.Age != "" {
			fmt.Fprintf(&b, "- Age: %s\n", pd.Age)
		}
		if pd.Location != "" {
			fmt.Fprintf(&b, "- Location: %s\n", pd.Location)
		}
		if pd.Work != "" {
			fmt.Fprintf(&b, "- Work: %s\n", pd.Work)
		}
		for role, names := range pd.FamilyMembers {
			fmt.Fprintf(&b, "- %s: %s\n", role, strings.Join(names, ", "))
		}
		if len(pd.Pets) > 0 {
			fmt.Fprintf(&b, "- Pets: %s\n", strings.Join(pd.Pets, ", "))
		}
		b.WriteString("\n")
	}

	if bundle.SummaryContext != "" {
		fmt.Fprintf(&b, "Conversation history: %s\n\n", bundle.SummaryContext)
	}

	if len(bundle.Important) > 0 {
		b.WriteString("Important memories:\n")
		for _, m := range bundle.Important {
			content, _ := m.DisplayContent()
			fmt.Fprintf(&b, "- %s\n", content)
		}
		b.WriteString("\n")
	}

	if len(bundle.Entities) > 0 {
		names := make([]string, 0, len(bundle.Entities))
		for _, e := range bundle.Entities {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "People, places, and things mentioned: %s\n\n", strings.Join(names, ", "))
	}

	if bundle.EmotionalContext != "" {
		fmt.Fprintf(&b, "Emotional tone: %s\n\n", bundle.EmotionalContext)
	}

	if b.Len() == 0 && bundle.Stats.TotalMemories == 0 {
		return "No memories recorded yet for this pair.", nil
	}

	fmt.Fprintf(&b, "Topic: %s. Total memories: %d (%d active, %d summarized).\n",
		bundle.Topic, bundle.Stats.TotalMemories, bundle.Stats.BufferCount, bundle.Stats.SummaryCount)

	if bundle.ProfileInsights.CommunicationStyle != "" {
		fmt.Fprintf(&b, "Communication style: %s.\n", bundle.ProfileInsights.CommunicationStyle)
	}

	return b.String(), nil
}
