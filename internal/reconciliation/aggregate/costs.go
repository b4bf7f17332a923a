package aggregate

import (
	"github.com/shopspring/decimal"

	"idgov/internal/reconciliation/engine"
)

// CostTable is the fixed unit cost, in the reporting currency, of each
// divergence. Orphan accounts carry no direct cost.
var CostTable = map[engine.Divergence]decimal.Decimal{
	engine.DivergenceCritical:         decimal.NewFromInt(25000),
	engine.DivergenceCPF:              decimal.NewFromInt(5000),
	engine.DivergenceName:             decimal.NewFromInt(1000),
	engine.DivergenceEmail:            decimal.NewFromInt(1000),
	engine.DivergenceAccessNotGranted: decimal.NewFromInt(2500),
	engine.DivergenceNotFound:         decimal.Zero,
}

// MitigationRate is the share of the potential loss assumed mitigated.
var MitigationRate = decimal.RequireFromString("0.95")

// costCategory groups divergences that share one breakdown row.
type costCategory struct {
	label   string
	members []engine.Divergence
}

// costCategories is the display order of the breakdown rows. Name and email
// share a row and a unit cost.
var costCategories = []costCategory{
	{label: "Acessos indevidos (inativos no RH e ativos no sistema)", members: []engine.Divergence{engine.DivergenceCritical}},
	{label: "Divergência de CPF", members: []engine.Divergence{engine.DivergenceCPF}},
	{label: "Divergência cadastral (nome e e-mail)", members: []engine.Divergence{engine.DivergenceName, engine.DivergenceEmail}},
	{label: "Acesso previsto não concedido", members: []engine.Divergence{engine.DivergenceAccessNotGranted}},
}

func unitCost(d engine.Divergence) decimal.Decimal {
	if c, ok := CostTable[d]; ok {
		return c
	}
	return decimal.Zero
}
