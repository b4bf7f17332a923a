package engine

// Divergence is the closed set of governance findings the engine reports.
type Divergence uint8

const (
	// DivergenceNotFound: target identity with no HR counterpart.
	DivergenceNotFound Divergence = iota
	// DivergenceCritical: active in the target system while inactive in HR.
	DivergenceCritical
	DivergenceCPF
	DivergenceName
	DivergenceEmail
	// DivergenceAccessNotGranted: active HR identity missing from a target system.
	DivergenceAccessNotGranted

	divergenceCount
)

// AllDivergences lists every divergence in display order.
var AllDivergences = []Divergence{
	DivergenceCritical,
	DivergenceCPF,
	DivergenceName,
	DivergenceEmail,
	DivergenceAccessNotGranted,
	DivergenceNotFound,
}

var divergenceKeys = [divergenceCount]string{
	DivergenceNotFound:         "ativosNaoEncontradosRH",
	DivergenceCritical:         "inativosRHAtivosApp",
	DivergenceCPF:              "cpf",
	DivergenceName:             "nome",
	DivergenceEmail:            "email",
	DivergenceAccessNotGranted: "acessoPrevistoNaoConcedido",
}

// String returns the document key of d.
func (d Divergence) String() string {
	if d >= divergenceCount {
		return "unknown"
	}
	return divergenceKeys[d]
}

// Flags is a bitset of the divergences raised on one target identity.
// DivergenceAccessNotGranted never appears here; gaps are reported separately.
type Flags uint8

func (f Flags) Has(d Divergence) bool {
	return f&(1<<d) != 0
}

func (f Flags) With(d Divergence) Flags {
	return f | 1<<d
}

// Any reports whether at least one divergence is set.
func (f Flags) Any() bool {
	return f != 0
}

// List returns the set divergences in display order.
func (f Flags) List() []Divergence {
	var out []Divergence
	for _, d := range AllDivergences {
		if f.Has(d) {
			out = append(out, d)
		}
	}
	return out
}
