package qualification

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// Processor продвигает конкурсы по раундам: оценивает работы завершившихся раундов,
// переводит прошедших участников дальше и завершает конкурсы без продолжения.
// Состояния между вызовами не хранит, повторный запуск безопасен.
type Processor struct {
	config *Config
	deps   *Dependencies
}

// NewProcessor создает новый процессор квалификации
func NewProcessor(config *Config, deps *Dependencies) *Processor {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Processor{config: config, deps: deps}
}

// Sweep обрабатывает все активные незавершенные конкурсы.
// Ошибка возвращается только если не удалось загрузить список конкурсов,
// сбои отдельных раундов и конкурсов попадают в отчет и лог.
func (p *Processor) Sweep(ctx context.Context) (*SweepReport, error) {
	startedAt := p.deps.Clock()

	competitions, err := p.deps.CompetitionRepo.ListActiveWithRounds(ctx)
	if err != nil {
		p.deps.Metrics.RecordError("load")
		return nil, fmt.Errorf("load active competitions: %w", err)
	}
	log.Printf("[Sweep] Найдено активных конкурсов: %d", len(competitions))

	results := make([][]ReportItem, len(competitions))

	var g errgroup.Group
	if p.config.Concurrency > 0 {
		g.SetLimit(p.config.Concurrency)
	}
	for i := range competitions {
		g.Go(func() error {
			competition := &competitions[i]
			items, err := p.safeProcessCompetition(ctx, competition, startedAt)
			if err != nil {
				log.Printf("[Sweep] Ошибка обработки конкурса %s (%s): %v", competition.ID, competition.Title, err)
				p.deps.Metrics.RecordError("competition")
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	report := &SweepReport{
		StartedAt: startedAt,
		Items:     make([]ReportItem, 0),
	}
	for _, items := range results {
		report.Items = append(report.Items, items...)
	}
	report.FinishedAt = p.deps.Clock()

	p.deps.Metrics.ObserveSweep(report.FinishedAt.Sub(startedAt), report.FinishedAt)

	if p.deps.Reports != nil {
		if err := p.deps.Reports.SaveReport(ctx, report); err != nil {
			log.Printf("[Sweep] Не удалось сохранить отчет: %v", err)
			p.deps.Metrics.RecordError("report")
		}
	}

	log.Printf("[Sweep] Прогон завершен: обработано %d, ошибок %d, заняло %v",
		len(report.Items), report.ErrorCount(), report.FinishedAt.Sub(startedAt))
	return report, nil
}

// safeProcessCompetition вызывает processCompetition с recover: паника в одном конкурсе
// не должна останавливать прогон остальных
func (p *Processor) safeProcessCompetition(ctx context.Context, competition *entity.Competition, now time.Time) (items []ReportItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Sweep] PANIC recovered while processing competition %s: %v\n%s",
				competition.ID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	return p.processCompetition(ctx, competition, now)
}

// processCompetition обрабатывает завершившиеся раунды одного конкурса по порядку
func (p *Processor) processCompetition(ctx context.Context, competition *entity.Competition, now time.Time) ([]ReportItem, error) {
	schedule := competition.Schedule()
	first := schedule.First()
	if first == nil {
		return nil, nil
	}

	if first.HasEnded(now) {
		count, err := p.deps.ParticipantRepo.CountByCompetition(ctx, competition.ID)
		if err != nil {
			return nil, fmt.Errorf("count participants: %w", err)
		}
		if count == 0 {
			outcome := &RoundOutcome{
				CompetitionID:    competition.ID,
				CompetitionTitle: competition.Title,
				Round:            *first,
			}
			err := p.finalize(ctx, p.deps.CompetitionRepo, outcome, entity.CompletionNoParticipants, true, now)
			if err != nil {
				return nil, err
			}
			p.afterRound(ctx, outcome)
			if outcome.CompletionReason == nil {
				return nil, nil
			}
			return []ReportItem{outcome.reportItem()}, nil
		}
	}

	var items []ReportItem
	for _, round := range schedule.Ended(now) {
		counts, err := p.deps.EntryRepo.CountForRound(ctx, round.ID)
		if err != nil {
			p.deps.Metrics.RecordError("round")
			return append(items, errorItem(competition, round, err)), nil
		}
		if counts.FullyProcessed() {
			continue
		}

		outcome, err := p.processRound(ctx, competition.ID, round.ID, now)
		if err != nil {
			log.Printf("[Processor] Ошибка обработки раунда %s конкурса %s: %v", round.ID, competition.ID, err)
			p.deps.Metrics.RecordError("round")
			// Следующие раунды зависят от продвижения в этом, поэтому конкурс откладывается до следующего прогона
			return append(items, errorItem(competition, round, err)), nil
		}
		items = append(items, outcome.reportItem())
		if outcome.Terminal {
			break
		}
	}
	return items, nil
}

// ProcessRound обрабатывает один раунд по запросу администратора.
// В отличие от прогона проверяет, что раунд завершился и еще не обработан.
func (p *Processor) ProcessRound(ctx context.Context, competitionID, roundID string) (*RoundOutcome, error) {
	now := p.deps.Clock()

	competition, err := p.deps.CompetitionRepo.GetWithRounds(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", repository.ErrCompetitionFinalized, competitionID)
	}
	pos, ok := competition.Schedule().Locate(roundID)
	if !ok {
		return nil, fmt.Errorf("%w: round %s in competition %s", apperrors.ErrNotFound, roundID, competitionID)
	}
	if !pos.Round.HasEnded(now) {
		return nil, fmt.Errorf("%w: round %s ends at %s", repository.ErrRoundNotEnded, roundID, pos.Round.EndDate.Format(time.RFC3339))
	}
	counts, err := p.deps.EntryRepo.CountForRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if counts.FullyProcessed() {
		return nil, fmt.Errorf("%w: %s", repository.ErrRoundAlreadyProcessed, roundID)
	}

	return p.processRound(ctx, competitionID, roundID, now)
}

// processRound оценивает работы раунда в одной транзакции
func (p *Processor) processRound(ctx context.Context, competitionID, roundID string, now time.Time) (*RoundOutcome, error) {
	var outcome *RoundOutcome

	err := p.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		competitions := p.deps.CompetitionRepo.WithTx(tx)
		participants := p.deps.ParticipantRepo.WithTx(tx)
		entries := p.deps.EntryRepo.WithTx(tx)

		competition, err := competitions.GetWithRounds(ctx, competitionID)
		if err != nil {
			return fmt.Errorf("load competition %s: %w", competitionID, err)
		}
		if competition.IsTerminal() {
			return fmt.Errorf("%w: %s", repository.ErrCompetitionFinalized, competitionID)
		}

		pos, ok := competition.Schedule().Locate(roundID)
		if !ok {
			return fmt.Errorf("%w: round %s in competition %s", apperrors.ErrNotFound, roundID, competitionID)
		}
		round := pos.Round
		result := &RoundOutcome{
			CompetitionID:    competition.ID,
			CompetitionTitle: competition.Title,
			Round:            round,
		}
		outcome = result

		// Повтор проверки из Sweep: раунд мог попасть сюда в обход нее
		if pos.IsFirst && round.HasEnded(now) {
			count, err := participants.CountByCompetition(ctx, competitionID)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if count == 0 {
				return p.finalize(ctx, competitions, result, entity.CompletionNoParticipants, true, now)
			}
		}

		evaluable, err := entries.ListEvaluable(ctx, round.ID)
		if err != nil {
			return err
		}
		if len(evaluable) == 0 {
			counts, err := entries.CountForRound(ctx, round.ID)
			if err != nil {
				return err
			}
			if counts.Submitted > 0 {
				// Все работы уже обработаны параллельным прогоном
				return nil
			}
			return p.finalize(ctx, competitions, result, entity.CompletionNoSubmissions, pos.IsFirst, now)
		}

		for _, group := range groupByParticipant(evaluable) {
			for _, e := range group.Entries {
				passed := round.Passes(e.LikeCount)
				applied, err := entries.MarkQualification(ctx, e.EntryID, entity.QualificationFor(passed), now)
				if err != nil {
					return err
				}
				if !applied {
					continue
				}
				result.Processed++
				if passed {
					result.Qualified++
				} else {
					result.Disqualified++
				}

				if pos.Next == nil {
					continue
				}
				if passed {
					created, err := entries.EnsureEntry(ctx, group.ParticipantID, pos.Next.ID)
					if err != nil {
						return err
					}
					if created {
						result.Advanced++
					}
					if err := participants.UpdateCurrentRound(ctx, group.ParticipantID, pos.Next.ID); err != nil {
						return fmt.Errorf("advance participant %s: %w", group.ParticipantID, err)
					}
				} else {
					hidden, err := entries.HideFromCompetitionFeedAfter(ctx, group.ParticipantID, competitionID, round.StartDate)
					if err != nil {
						return err
					}
					result.Hidden += hidden
				}
			}
		}

		if pos.IsLast || result.Processed == 0 {
			return nil
		}
		qualified, err := entries.CountQualified(ctx, round.ID)
		if err != nil {
			return err
		}
		if qualified == 0 {
			return p.finalize(ctx, competitions, result, entity.CompletionNoQualifiers, pos.IsFirst, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Processor] Раунд %s (%s) конкурса %s: %s",
		outcome.Round.ID, outcome.Round.Name, competitionID, outcome.Summary())
	p.afterRound(ctx, outcome)
	return outcome, nil
}

// finalize завершает конкурс условным обновлением.
// Если конкурс уже завершен другим прогоном, причина не перезаписывается.
func (p *Processor) finalize(ctx context.Context, competitions repository.CompetitionRepository, outcome *RoundOutcome, kind entity.CompletionKind, firstRound bool, now time.Time) error {
	reason := entity.CompletionReasonFor(kind, firstRound, outcome.Round.Name)
	applied, err := competitions.Finalize(ctx, outcome.CompetitionID, reason, now)
	if err != nil {
		return err
	}
	outcome.Terminal = true
	if !applied {
		log.Printf("[Processor] Конкурс %s уже завершен, причина не изменена", outcome.CompetitionID)
		return nil
	}
	outcome.CompletionKind = kind
	outcome.CompletionReason = &reason
	log.Printf("[Processor] Конкурс %s завершен (%s): %s", outcome.CompetitionID, kind, reason)
	return nil
}

// afterRound выполняет действия после фиксации транзакции: метрики, события, сброс кеша
func (p *Processor) afterRound(ctx context.Context, outcome *RoundOutcome) {
	if outcome.Processed > 0 {
		p.deps.Metrics.RecordRoundProcessed(outcome.Qualified, outcome.Disqualified)
	}
	if outcome.CompletionReason != nil {
		p.deps.Metrics.RecordFinalized(string(outcome.CompletionKind))
	}

	if outcome.Processed == 0 && outcome.CompletionReason == nil {
		return
	}

	if p.deps.Events != nil {
		if outcome.Processed > 0 {
			p.deps.Events.PublishToCompetition(outcome.CompetitionID, EventRoundProcessed, map[string]interface{}{
				"competition_id": outcome.CompetitionID,
				"round_id":       outcome.Round.ID,
				"round_name":     outcome.Round.Name,
				"processed":      outcome.Processed,
				"qualified":      outcome.Qualified,
				"disqualified":   outcome.Disqualified,
			})
		}
		if outcome.CompletionReason != nil {
			p.deps.Events.PublishToCompetition(outcome.CompetitionID, EventCompetitionFinished, map[string]interface{}{
				"competition_id":    outcome.CompetitionID,
				"completion_reason": *outcome.CompletionReason,
				"kind":              outcome.CompletionKind,
			})
		}
	}

	if p.deps.Cache != nil {
		if err := p.deps.Cache.InvalidateCompetition(ctx, outcome.CompetitionID); err != nil {
			log.Printf("[Processor] Не удалось сбросить кеш конкурса %s: %v", outcome.CompetitionID, err)
		}
	}
}

func errorItem(competition *entity.Competition, round entity.Round, err error) ReportItem {
	return ReportItem{
		CompetitionID:    competition.ID,
		CompetitionTitle: competition.Title,
		RoundID:          round.ID,
		RoundName:        round.Name,
		Result:           "Failed to process round",
		Error:            err.Error(),
	}
}
