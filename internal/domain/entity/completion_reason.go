package entity

import (
	"fmt"
	"strings"
)

// CompletionKind: причина досрочного завершения конкурса
type CompletionKind string

// Виды завершения конкурса
const (
	CompletionNoParticipants CompletionKind = "no_participants"
	CompletionNoSubmissions  CompletionKind = "no_submissions"
	CompletionNoQualifiers   CompletionKind = "no_qualifiers"
)

type completionKey struct {
	kind       CompletionKind
	firstRound bool
}

// Тексты показываются пользователям без изменений, %s заменяется названием раунда.
var completionMessages = map[completionKey]string{
	{CompletionNoParticipants, true}:  "No one joined this competition, that's why it ended.",
	{CompletionNoParticipants, false}: "No one joined this competition, that's why it ended.",
	{CompletionNoSubmissions, true}:   "No participants submitted posts for the competition. No winner declared.",
	{CompletionNoSubmissions, false}:  "No participants available in %s. No winner declared.",
	{CompletionNoQualifiers, true}:    "No participants met the minimum requirements to pass the first round. No winner declared.",
	{CompletionNoQualifiers, false}:   "No participants qualified from %s. No winner declared.",
}

// CompletionReasonFor возвращает текст причины завершения
func CompletionReasonFor(kind CompletionKind, firstRound bool, roundName string) string {
	tmpl, ok := completionMessages[completionKey{kind: kind, firstRound: firstRound}]
	if !ok {
		return fmt.Sprintf("Competition ended: %s.", kind)
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, roundName)
	}
	return tmpl
}
