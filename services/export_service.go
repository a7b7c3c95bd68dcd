package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/titlescore/titlescore/repositories"
	"github.com/titlescore/titlescore/storage"
)

type ExportService interface {
	// ExportResults собирает полную выгрузку конкурса в CSV: состав, критерии,
	// сырые оценки судей и подведенные итоги. Файл загружается в объектное
	// хранилище, возвращается результат загрузки с публичной ссылкой.
	ExportResults(ctx context.Context, callerID, contestID string) (*storage.UploadResult, error)
}

type exportService struct {
	contestRepo   repositories.ContestRepository
	criterionRepo repositories.CriterionRepository
	scoreRepo     repositories.ScoreRepository
	authorizer    Authorizer
	members       MemberService
	standings     StandingsService
	uploader      storage.FileUploader
}

func NewExportService(
	contestRepo repositories.ContestRepository,
	criterionRepo repositories.CriterionRepository,
	scoreRepo repositories.ScoreRepository,
	authorizer Authorizer,
	members MemberService,
	standings StandingsService,
	uploader storage.FileUploader,
) ExportService {
	return &exportService{
		contestRepo:   contestRepo,
		criterionRepo: criterionRepo,
		scoreRepo:     scoreRepo,
		authorizer:    authorizer,
		members:       members,
		standings:     standings,
		uploader:      uploader,
	}
}

func (s *exportService) ExportResults(ctx context.Context, callerID, contestID string) (*storage.UploadResult, error) {
	// Единственная проверка прав на операцию: дальше только внутренние
	// выборки без повторной авторизации.
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionManage); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %s: %w", contestID, err)
	}

	summary, err := s.standings.summarize(ctx, contestID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.listMembers(ctx, contestID, "")
	if err != nil {
		return nil, err
	}
	criteria, err := s.criterionRepo.ListByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria for contest %s: %w", contestID, err)
	}
	scores, err := s.scoreRepo.ListByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for contest %s: %w", contestID, err)
	}

	// Справочники имен для секции сырых оценок.
	memberNames := make(map[string]string, len(members))
	for _, m := range members {
		memberNames[m.UserID] = m.DisplayName
	}
	contestantNames := make(map[string]string, len(summary.Contestants))
	for _, c := range summary.Contestants {
		contestantNames[c.ContestantID] = c.Name
	}
	criterionNames := make(map[string]string, len(criteria))
	for _, cr := range criteria {
		criterionNames[cr.ID] = cr.Name
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Шапка конкурса.
	writeRows(w, [][]string{
		{"Contest", contest.Name},
		{"Exported", time.Now().UTC().Format(time.RFC3339)},
		{"Has quorum", strconv.FormatBool(summary.HasQuorum)},
		{},
	})

	// Состав.
	writeRows(w, [][]string{{"Members"}, {"Name", "Email", "Role"}})
	for _, m := range members {
		writeRows(w, [][]string{{m.DisplayName, m.Email, string(m.Role)}})
	}
	writeRows(w, [][]string{{}})

	// Критерии с максимальным баллом.
	writeRows(w, [][]string{{"Criteria"}, {"Name", "Description", "Max score"}})
	for _, cr := range criteria {
		writeRows(w, [][]string{{cr.Name, cr.Description, strconv.Itoa(cr.Weight)}})
	}
	writeRows(w, [][]string{{}})

	// Сырые оценки судей: основа для аудита итогов.
	writeRows(w, [][]string{{"Scores"}, {"Judge", "Contestant", "Criterion", "Score", "Comment", "Submitted at"}})
	for _, sc := range scores {
		value := ""
		if sc.Value != nil {
			value = strconv.Itoa(*sc.Value)
		}
		comment := ""
		if sc.Comment != nil {
			comment = *sc.Comment
		}
		submitted := ""
		if sc.SubmittedAt != nil {
			submitted = sc.SubmittedAt.UTC().Format(time.RFC3339)
		}
		writeRows(w, [][]string{{
			nameOrID(memberNames, sc.JudgeID),
			nameOrID(contestantNames, sc.ContestantID),
			nameOrID(criterionNames, sc.CriteriaID),
			value,
			comment,
			submitted,
		}})
	}
	writeRows(w, [][]string{{}})

	// Итоги: место, конкурсант, сумма и средние по критериям.
	header := []string{"Rank", "Contestant", "Stage name", "Total", "Complete"}
	var criteriaHeader []string
	if len(summary.Contestants) > 0 {
		for _, cr := range summary.Contestants[0].Criteria {
			criteriaHeader = append(criteriaHeader, cr.Name)
		}
	}
	writeRows(w, [][]string{{"Standings"}, append(header, criteriaHeader...)})

	for rank, contestant := range summary.Contestants {
		row := []string{
			strconv.Itoa(rank + 1),
			contestant.Name,
			contestant.StageName,
			strconv.FormatFloat(contestant.Total, 'f', 2, 64),
			strconv.FormatBool(contestant.Complete),
		}
		for _, cr := range contestant.Criteria {
			if cr.Scored {
				row = append(row, strconv.FormatFloat(cr.Average, 'f', 2, 64))
			} else {
				row = append(row, "")
			}
		}
		writeRows(w, [][]string{row})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%d.csv", contestID, time.Now().Unix())
	result, err := s.uploader.Upload(ctx, key, "text/csv", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to upload export: %w", ErrInternal, err)
	}
	return result, nil
}

func writeRows(w *csv.Writer, rows [][]string) {
	for _, row := range rows {
		// Ошибки всплывут из w.Error() после Flush.
		_ = w.Write(row)
	}
}

func nameOrID(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
