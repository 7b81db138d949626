package llm

import (
	"fmt"
	"strings"
)

// AnswerPrompt builds the prompt for answering a question over retrieved
// email chunks, with the recent conversation history for continuity.
func AnswerPrompt(history string, chunks []string, question string) string {
	if history == "" {
		history = "(none)"
	}

	return fmt.Sprintf(`Based on the following email contents and conversation history, provide a detailed and accurate response.

CONVERSATION HISTORY:
%s

RELEVANT EMAIL CONTENTS:
%s

QUESTION: %s

Provide a comprehensive answer using the information from the emails. If referring to specific emails, mention their details (sender, date, subject) for context. Only the last two days of mail are indexed; say so if the question reaches further back.`,
		history, strings.Join(chunks, "\n\n"), question)
}

// ComposePrompt builds the prompt for drafting an outgoing email.
func ComposePrompt(subject, context, fromName, fromAddr string) string {
	return fmt.Sprintf(`Write a professional email with the following details:
Subject: %s
Additional Context: %s

Guidelines:
- Keep it professional and concise
- Use appropriate greeting and closing
- Maintain a friendly yet formal tone
- Focus on clarity and directness
- Your name is %s
- Your email address is %s

Provide only the email body, without subject or recipient information.`,
		subject, context, fromName, fromAddr)
}
