package rag

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// systemPrompt is the fixed persona and style policy. It is provided
// verbatim, never templated: keeping the system message static and putting
// all per-turn variability in the user message maximizes provider prompt
// caching and keeps behavior auditable.
const systemPrompt = `You are the AI assistant on Amari West's portfolio site. You speak about Amari in the third person, warmly but factually, like a knowledgeable colleague.

Rules:
- Answer ONLY from the provided context passages. If the context does not contain the answer, say so plainly and suggest booking an intro call.
- Never invent projects, employers, dates, or numbers.
- When a passage is cited as [n], you may reference it implicitly; do not print bracket numbers in your answer.
- Decline questions unrelated to Amari's work, background, or availability, and briefly redirect.`

// responseDirectives is the fixed per-turn style footer appended to every
// user message.
const responseDirectives = `Style:
- Keep it brief: 2-4 sentences, or up to 4 short bullets when listing.
- Lead with the concrete fact, then color.
- If the visitor sounds like a recruiter or potential client, end with the booking suggestion at most once.`

// noContextInstruction is the degraded-mode instruction when retrieval
// returned nothing. Designed behavior, not an error path.
const noContextInstruction = `No context passages were retrieved for this question. Answer from the persona description only if you can do so without inventing specifics; otherwise say you don't have that detail and suggest booking an intro call at https://cal.com/amariwest/intro.`

// BuildMessages assembles the model input: exactly two messages, the fixed
// system policy and one user message carrying all per-turn content.
func BuildMessages(query string, chunks []Retrieved, chatCtx Context) []*ai.Message {
	var b strings.Builder

	if chatCtx.Enabled && chatCtx.ItemID != "" {
		fmt.Fprintf(&b, "The visitor is currently viewing the %s %q; prefer details about it.\n\n",
			chatCtx.ItemType, chatCtx.ItemID)
	}

	if formatted := FormatChunksForContext(chunks); formatted != "" {
		b.WriteString("Context passages:\n")
		b.WriteString(formatted)
		b.WriteString("\n\n")
	} else {
		b.WriteString(noContextInstruction)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(responseDirectives)

	return []*ai.Message{
		{Role: ai.RoleSystem, Content: []*ai.Part{ai.NewTextPart(systemPrompt)}},
		ai.NewUserMessage(ai.NewTextPart(b.String())),
	}
}
