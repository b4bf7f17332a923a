package models

import "strconv"

// Document is the dashboard payload for one scope. Keys are the Portuguese
// names the dashboard consumes.
type Document struct {
	Pills          Pills        `json:"pills"`
	TiposDeUsuario []LabelCount `json:"tiposDeUsuario"`
	KPIs           KPIs         `json:"kpisAdicionais"`
	Divergencias   Divergencias `json:"divergencias"`
	Riscos         Riscos       `json:"riscos"`
}

// Pills counts the in-scope target records. Desconhecido counts records with
// an empty userType, not an unknown status; dashboards depend on that.
type Pills struct {
	Total        int `json:"total"`
	Ativos       int `json:"ativos"`
	Inativos     int `json:"inativos"`
	Desconhecido int `json:"desconhecido"`
}

// LabelCount is one bucket of a frequency table.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type KPIs struct {
	ContasDormentes    int `json:"contasDormentes"`
	AcessoPrivilegiado int `json:"acessoPrivilegiado"`
	AdminsDormentes    int `json:"adminsDormentes"`
}

type Divergencias struct {
	InativosRHAtivosApp        int `json:"inativosRHAtivosApp"`
	CPF                        int `json:"cpf"`
	Nome                       int `json:"nome"`
	Email                      int `json:"email"`
	AcessoPrevistoNaoConcedido int `json:"acessoPrevistoNaoConcedido"`
	AtivosNaoEncontradosRH     int `json:"ativosNaoEncontradosRH"`
}

// Riscos holds the financial and compliance figures. Currency values are
// locale-formatted strings.
type Riscos struct {
	PrejuizoPotencial           string         `json:"prejuizoPotencial"`
	ValorMitigado               string         `json:"valorMitigado"`
	IndiceConformidade          Percent        `json:"indiceConformidade"`
	PrejuizoBreakdown           []BreakdownRow `json:"prejuizoBreakdown"`
	RiscosEmContasPrivilegiadas int            `json:"riscosEmContasPrivilegiadas"`
}

// BreakdownRow is one cost category of PrejuizoPotencial.
type BreakdownRow struct {
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	CostPerUnit float64 `json:"costPerUnit"`
	SubTotal    float64 `json:"subTotal"`
}

// Percent is a percentage rendered with exactly one decimal place.
type Percent float64

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 1, 64)), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}
