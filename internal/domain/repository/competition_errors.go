package repository

import "errors"

var (
	// ErrCompetitionFinalized означает, что у конкурса уже выставлена причина завершения.
	ErrCompetitionFinalized = errors.New("competition is already finalized")
	// ErrCompetitionClosed означает, что конкурс больше не принимает участников или работы.
	ErrCompetitionClosed = errors.New("competition is closed")
	// ErrAlreadyJoined означает повторную попытку вступить в конкурс.
	ErrAlreadyJoined = errors.New("user already joined this competition")
	// ErrNotParticipant означает, что пользователь не участвует в конкурсе.
	ErrNotParticipant = errors.New("user is not a participant of this competition")
	// ErrParticipantEliminated означает, что участник выбыл в одном из прошлых раундов.
	ErrParticipantEliminated = errors.New("participant has been eliminated")
	// ErrRoundNotOpen означает попытку отправить работу вне окна раунда.
	ErrRoundNotOpen = errors.New("round is not accepting submissions")
	// ErrRoundNotEnded означает попытку обработать раунд до его окончания.
	ErrRoundNotEnded = errors.New("round has not ended yet")
	// ErrRoundAlreadyProcessed означает, что все работы раунда уже прошли квалификацию.
	ErrRoundAlreadyProcessed = errors.New("round is already processed")
	// ErrEntryAlreadySubmitted означает, что в раунд уже отправлена работа.
	ErrEntryAlreadySubmitted = errors.New("entry already submitted for this round")
)
