// Package stages groups catalog accommodations by the trail stage they belong to.
package stages

import (
	"sort"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
)

// StageGroup is the set of accommodations declared for one stage
type StageGroup struct {
	StageNumber    int                      `json:"stage_number"`
	StageName      string                   `json:"stage_name"`
	StageStart     string                   `json:"stage_start"`
	StageEnd       string                   `json:"stage_end"`
	Accommodations []*catalog.Accommodation `json:"accommodations"`
}

// GroupByStage returns stage groups in ascending stage order. Accommodations
// without a stage are left out. Stage metadata comes from the first member seen.
func GroupByStage(accs []*catalog.Accommodation) []StageGroup {
	byNumber := make(map[int]*StageGroup)
	for _, acc := range accs {
		if acc == nil {
			continue
		}
		number, ok := acc.StageNumber()
		if !ok {
			continue
		}

		group, exists := byNumber[number]
		if !exists {
			group = &StageGroup{
				StageNumber: number,
				StageName:   acc.Stage.Name,
				StageStart:  acc.Stage.StartLocation,
				StageEnd:    acc.Stage.EndLocation,
			}
			byNumber[number] = group
		}
		group.Accommodations = append(group.Accommodations, acc)
	}

	groups := make([]StageGroup, 0, len(byNumber))
	for _, group := range byNumber {
		catalog.SortByName(group.Accommodations)
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].StageNumber < groups[j].StageNumber
	})
	return groups
}

// Find returns the group for a stage number
func Find(groups []StageGroup, number int) (StageGroup, bool) {
	i := sort.Search(len(groups), func(i int) bool { return groups[i].StageNumber >= number })
	if i < len(groups) && groups[i].StageNumber == number {
		return groups[i], true
	}
	return StageGroup{}, false
}
