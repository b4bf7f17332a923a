// Package aggregate folds a reconciliation result into the dashboard document:
// population pills, user-type frequencies, KPIs, divergence counters, and the
// financial and compliance figures.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"idgov/internal/reconciliation/engine"
	"idgov/internal/reconciliation/models"
	pstrings "idgov/pkg/platform/strings"
)

// UncategorizedUserType labels records with an empty userType.
const UncategorizedUserType = "Não categorizado"

var hundred = decimal.NewFromInt(100)

// Aggregator builds documents with a fixed currency formatter.
type Aggregator struct {
	money *MoneyFormatter
}

// New creates an Aggregator rendering currency for locale.
func New(locale string) *Aggregator {
	return &Aggregator{money: NewMoneyFormatter(locale)}
}

var defaultAggregator = New("pt-BR")

// Build folds res into a document using pt-BR currency formatting.
func Build(res *engine.Result) models.Document {
	return defaultAggregator.Build(res)
}

// Build folds res into a document.
func (a *Aggregator) Build(res *engine.Result) models.Document {
	return models.Document{
		Pills:          pills(res),
		TiposDeUsuario: userTypes(res),
		KPIs:           kpis(res),
		Divergencias:   divergencias(res),
		Riscos:         a.riscos(res),
	}
}

func pills(res *engine.Result) models.Pills {
	p := models.Pills{Total: len(res.Findings)}
	for _, f := range res.Findings {
		switch {
		case f.Identity.IsActive():
			p.Ativos++
		case f.Identity.IsInactive():
			p.Inativos++
		}
		if strings.TrimSpace(f.Identity.UserType) == "" {
			p.Desconhecido++
		}
	}
	return p
}

// userTypes groups case-insensitively, keeping the first spelling seen, and
// sorts by count descending then label ascending.
func userTypes(res *engine.Result) []models.LabelCount {
	index := make(map[string]int)
	out := []models.LabelCount{}
	for _, f := range res.Findings {
		label := strings.TrimSpace(f.Identity.UserType)
		if label == "" {
			label = UncategorizedUserType
		}
		key := pstrings.Fold(label)
		if pos, ok := index[key]; ok {
			out[pos].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, models.LabelCount{Label: label, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func kpis(res *engine.Result) models.KPIs {
	var k models.KPIs
	for _, f := range res.Findings {
		admin := f.Identity.IsAdmin()
		if f.Dormant {
			k.ContasDormentes++
			if admin {
				k.AdminsDormentes++
			}
		}
		if admin && f.Identity.IsActive() {
			k.AcessoPrivilegiado++
		}
	}
	return k
}

func divergencias(res *engine.Result) models.Divergencias {
	return models.Divergencias{
		InativosRHAtivosApp:        res.Count(engine.DivergenceCritical),
		CPF:                        res.Count(engine.DivergenceCPF),
		Nome:                       res.Count(engine.DivergenceName),
		Email:                      res.Count(engine.DivergenceEmail),
		AcessoPrevistoNaoConcedido: res.Count(engine.DivergenceAccessNotGranted),
		AtivosNaoEncontradosRH:     res.Count(engine.DivergenceNotFound),
	}
}

func (a *Aggregator) riscos(res *engine.Result) models.Riscos {
	rows, total := Breakdown(res)
	out := models.Riscos{
		PrejuizoPotencial:           a.money.Format(total),
		ValorMitigado:               a.money.Format(Mitigated(total)),
		IndiceConformidade:          models.Percent(ComplianceIndex(res).InexactFloat64()),
		PrejuizoBreakdown:           make([]models.BreakdownRow, 0, len(rows)),
		RiscosEmContasPrivilegiadas: len(res.PrivilegedAtRisk()),
	}
	for _, r := range rows {
		out.PrejuizoBreakdown = append(out.PrejuizoBreakdown, models.BreakdownRow{
			Label:       r.Label,
			Count:       r.Count,
			CostPerUnit: r.CostPerUnit.InexactFloat64(),
			SubTotal:    r.SubTotal.InexactFloat64(),
		})
	}
	return out
}

// CostRow is one exact-arithmetic line of the potential loss.
type CostRow struct {
	Label       string
	Count       int
	CostPerUnit decimal.Decimal
	SubTotal    decimal.Decimal
}

// Breakdown returns the cost rows and their sum, the potential loss.
func Breakdown(res *engine.Result) ([]CostRow, decimal.Decimal) {
	total := decimal.Zero
	rows := make([]CostRow, 0, len(costCategories))
	for _, cat := range costCategories {
		row := CostRow{Label: cat.label, CostPerUnit: unitCost(cat.members[0]), SubTotal: decimal.Zero}
		for _, d := range cat.members {
			n := res.Count(d)
			row.Count += n
			row.SubTotal = row.SubTotal.Add(unitCost(d).Mul(decimal.NewFromInt(int64(n))))
		}
		total = total.Add(row.SubTotal)
		rows = append(rows, row)
	}
	return rows, total
}

// Mitigated applies MitigationRate to a potential loss.
func Mitigated(total decimal.Decimal) decimal.Decimal {
	return total.Mul(MitigationRate)
}

// ComplianceIndex is the share of the in-scope population, target records
// plus coverage gaps, free of divergence, as a percentage rounded to one
// decimal. An empty population is fully compliant.
func ComplianceIndex(res *engine.Result) decimal.Decimal {
	population := int64(len(res.Findings) + len(res.Gaps))
	if population == 0 {
		return hundred
	}
	clean := population - int64(res.TotalUniqueDivergent())
	return decimal.NewFromInt(clean).Mul(hundred).Div(decimal.NewFromInt(population)).Round(1)
}
