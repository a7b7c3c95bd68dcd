package scoring

import (
	"sort"

	"github.com/titlescore/titlescore/models"
)

// DefaultQuorumThreshold is the minimum number of judge scores on a criterion
// before the highest and lowest scores are dropped.
const DefaultQuorumThreshold = 5

// FinalizeParams carries everything finalization needs: all scores of a
// contest together with the criteria list, the contestants and the judge
// roster.
type FinalizeParams struct {
	Contestants []*models.Contestant
	Criteria    []*models.Criterion
	Scores      []*models.Score

	// Judges is the contest's judge roster (everyone holding the judge
	// relation), whether or not they scored anything.
	Judges []string
}

// JudgeScore is a single judge's score on a single criterion.
type JudgeScore struct {
	JudgeID string `json:"judge_id"`
	Value   int    `json:"score"`
}

// CriterionResult is the outcome for one criterion of one contestant.
type CriterionResult struct {
	CriteriaID string `json:"criteria_id"`
	Name       string `json:"name"`
	Weight     int    `json:"weight"`

	// Scores are the counted scores (after the drop, when one happened).
	Scores []JudgeScore `json:"scores"`

	// Dropped holds the removed scores as [lowest, highest].
	// Empty when quorum was not met.
	Dropped []JudgeScore `json:"dropped,omitempty"`

	// Scored=false means nobody scored this criterion. Average is zero in
	// that case and excluded from the total; NaN is never emitted.
	Scored  bool    `json:"scored"`
	Average float64 `json:"average"`
}

// ContestantResult is a contestant's total plus the full per-criterion
// breakdown kept for audit and display.
type ContestantResult struct {
	ContestantID string            `json:"contestant_id"`
	Name         string            `json:"name"`
	StageName    string            `json:"stage_name"`
	Total        float64           `json:"total"`
	Complete     bool              `json:"complete"`
	Criteria     []CriterionResult `json:"criteria"`
}

// Summary is the finalization result for a whole contest.
type Summary struct {
	Contestants []ContestantResult `json:"contestants"`
	Judges      []string           `json:"judges"`

	// HasQuorum is the coarse display signal: the contest has at least
	// threshold judges assigned. It is NOT the per-criterion drop rule,
	// which counts actual scores on each criterion.
	HasQuorum bool `json:"has_quorum"`
}

// Engine finalizes contest scores: group by (contestant, criterion), drop the
// single highest and lowest score when quorum is met, average the remainder
// and sum per-criterion averages into the contestant total.
type Engine struct {
	quorumThreshold int
}

func NewEngine(quorumThreshold int) *Engine {
	if quorumThreshold <= 0 {
		quorumThreshold = DefaultQuorumThreshold
	}
	return &Engine{quorumThreshold: quorumThreshold}
}

func (e *Engine) QuorumThreshold() int { return e.quorumThreshold }

// Finalize computes the summary. Scores without a value (score IS NULL) do
// not participate.
func (e *Engine) Finalize(params FinalizeParams) *Summary {
	// Index: contestantID -> criteriaID -> scores in arrival order.
	byContestant := make(map[string]map[string][]JudgeScore)
	for _, score := range params.Scores {
		if score.Value == nil {
			continue
		}
		byCriteria, ok := byContestant[score.ContestantID]
		if !ok {
			byCriteria = make(map[string][]JudgeScore)
			byContestant[score.ContestantID] = byCriteria
		}
		byCriteria[score.CriteriaID] = append(byCriteria[score.CriteriaID], JudgeScore{
			JudgeID: score.JudgeID,
			Value:   *score.Value,
		})
	}

	summary := &Summary{
		Judges:      params.Judges,
		HasQuorum:   len(params.Judges) >= e.quorumThreshold,
		Contestants: make([]ContestantResult, 0, len(params.Contestants)),
	}

	for _, contestant := range params.Contestants {
		result := ContestantResult{
			ContestantID: contestant.ID,
			Name:         contestant.Name,
			StageName:    contestant.StageName,
			Complete:     true,
			Criteria:     make([]CriterionResult, 0, len(params.Criteria)),
		}

		for _, criterion := range params.Criteria {
			cr := e.finalizeCriterion(criterion, byContestant[contestant.ID][criterion.ID])
			if cr.Scored {
				result.Total += cr.Average
			} else {
				result.Complete = false
			}
			result.Criteria = append(result.Criteria, cr)
		}

		summary.Contestants = append(summary.Contestants, result)
	}

	// Stable ranking: total descending, ties by name.
	sort.SliceStable(summary.Contestants, func(i, j int) bool {
		if summary.Contestants[i].Total != summary.Contestants[j].Total {
			return summary.Contestants[i].Total > summary.Contestants[j].Total
		}
		return summary.Contestants[i].Name < summary.Contestants[j].Name
	})

	return summary
}

func (e *Engine) finalizeCriterion(criterion *models.Criterion, scores []JudgeScore) CriterionResult {
	result := CriterionResult{
		CriteriaID: criterion.ID,
		Name:       criterion.Name,
		Weight:     criterion.Weight,
	}

	if len(scores) == 0 {
		// Division by zero is a defined edge case, not a crash: the
		// criterion is reported as unscored.
		return result
	}

	counted := scores
	if len(scores) >= e.quorumThreshold {
		// Stable ascending sort: on equal values the first and last in
		// arrival order are the ones dropped. Explicit choice, not an
		// accident of the sort.
		sorted := make([]JudgeScore, len(scores))
		copy(sorted, scores)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Value < sorted[j].Value
		})

		lowest := sorted[0]
		highest := sorted[len(sorted)-1]
		result.Dropped = []JudgeScore{lowest, highest}
		counted = sorted[1 : len(sorted)-1]
	}

	sum := 0
	for _, s := range counted {
		sum += s.Value
	}
	result.Scores = counted
	result.Scored = true
	result.Average = float64(sum) / float64(len(counted))
	return result
}
