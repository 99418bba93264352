package qualification

import (
	"fmt"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

// participantEntries: работы одного участника в раунде
type participantEntries struct {
	ParticipantID string
	Entries       []entity.EntryEngagement
}

// groupByParticipant группирует работы по участнику за один проход.
// Порядок групп совпадает с порядком первого появления участника во входном списке.
func groupByParticipant(entries []entity.EntryEngagement) []participantEntries {
	index := make(map[string]int, len(entries))
	groups := make([]participantEntries, 0, len(entries))
	for _, e := range entries {
		i, ok := index[e.ParticipantID]
		if !ok {
			i = len(groups)
			index[e.ParticipantID] = i
			groups = append(groups, participantEntries{ParticipantID: e.ParticipantID})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

func formatProcessed(processed, qualified, disqualified int) string {
	return fmt.Sprintf("Processed %d entries: %d qualified, %d disqualified", processed, qualified, disqualified)
}
