package aggregate

import (
	"sort"

	"idgov/internal/reconciliation/engine"
	"idgov/internal/reconciliation/models"
)

// Details lists every divergent or dormant target record and every coverage
// gap, sorted by system then identityId.
func Details(res *engine.Result) []models.DivergenceDetail {
	rows := []models.DivergenceDetail{}
	for _, f := range res.Findings {
		if !f.Flags.Any() && !f.Dormant {
			continue
		}
		labels := []string{}
		for _, d := range f.Flags.List() {
			labels = append(labels, d.String())
		}
		rows = append(rows, models.DivergenceDetail{
			System:      f.Identity.SourceSystem.String(),
			IdentityID:  f.Identity.IdentityID,
			Name:        f.Identity.Name,
			Divergences: labels,
			Dormant:     f.Dormant,
			Privileged:  f.Privileged,
		})
	}
	for _, g := range res.Gaps {
		rows = append(rows, models.DivergenceDetail{
			System:      g.System.String(),
			IdentityID:  g.HR.IdentityID,
			Name:        g.HR.Name,
			Divergences: []string{engine.DivergenceAccessNotGranted.String()},
			Privileged:  g.Privileged(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].System != rows[j].System {
			return rows[i].System < rows[j].System
		}
		return rows[i].IdentityID < rows[j].IdentityID
	})
	return rows
}
