package security

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	id "civitas/pkg/domain"
)

// Taxonomy maps free-text, localized category strings onto a closed set of
// canonical tags. Lookups ignore case, accents and repeated separators.
type Taxonomy struct {
	aliases  map[string]string
	fallback string
}

// NewTaxonomy builds a lookup from canonical tag to accepted aliases. The
// canonical tag itself is always accepted.
func NewTaxonomy(fallback string, entries map[string][]string) Taxonomy {
	t := Taxonomy{aliases: make(map[string]string), fallback: fallback}
	for canonical, aliases := range entries {
		t.aliases[fold(canonical)] = canonical
		for _, a := range aliases {
			t.aliases[fold(a)] = canonical
		}
	}
	return t
}

// Lookup returns the canonical tag for raw, or the fallback.
func (t Taxonomy) Lookup(raw string) string {
	if c, ok := t.aliases[fold(raw)]; ok {
		return c
	}
	return t.fallback
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, out)
	return strings.Join(strings.Fields(out), " ")
}

// Shared enumerations for the security module.
var (
	ReportTypes = NewTaxonomy("other", map[string][]string{
		"theft":             {"roubo", "furto", "assalto", "robbery", "furto de veiculo", "roubo de veiculo"},
		"assault":           {"agressao", "lesao corporal", "briga"},
		"domestic_violence": {"violencia domestica", "maria da penha"},
		"vandalism":         {"vandalismo", "depredacao", "pichacao", "dano ao patrimonio"},
		"fraud":             {"estelionato", "golpe", "fraude"},
		"traffic_accident":  {"acidente", "acidente de transito", "colisao", "atropelamento"},
		"drug_trafficking":  {"trafico", "trafico de drogas"},
		"disturbance":       {"perturbacao do sossego", "barulho", "som alto"},
		"missing_person":    {"desaparecimento", "pessoa desaparecida"},
		"threat":            {"ameaca"},
	})

	TipTypes = NewTaxonomy("other", map[string][]string{
		"drug_trafficking":    {"trafico", "trafico de drogas", "drogas", "boca de fumo"},
		"theft":               {"roubo", "furto", "receptacao"},
		"violence":            {"violencia", "agressao", "homicidio"},
		"domestic_violence":   {"violencia domestica"},
		"weapons":             {"armas", "arma", "porte ilegal", "porte ilegal de arma"},
		"corruption":          {"corrupcao", "propina"},
		"environmental_crime": {"crime ambiental", "desmatamento", "queimada", "maus tratos a animais"},
		"vandalism":           {"vandalismo", "pichacao"},
		"suspicious_activity": {"atividade suspeita", "movimentacao suspeita"},
	})

	PatrolTypes = NewTaxonomy("preventive", map[string][]string{
		"preventive": {"preventiva", "ronda preventiva"},
		"event":      {"evento", "eventos"},
		"school":     {"escolar", "ronda escolar", "escola"},
		"commercial": {"comercial", "comercio"},
		"emergency":  {"emergencia", "emergencial"},
	})

	CameraRequestTypes = NewTaxonomy("installation", map[string][]string{
		"installation":    {"instalacao", "nova camera"},
		"maintenance":     {"manutencao", "reparo", "camera quebrada"},
		"relocation":      {"remanejamento", "mudanca de local"},
		"footage_request": {"imagens", "gravacao", "solicitacao de imagens", "acesso a imagens"},
	})

	CameraKinds = NewTaxonomy("fixed", map[string][]string{
		"fixed": {"fixa"},
		"ptz":   {"movel", "giratoria", "speed dome"},
		"lpr":   {"leitura de placas", "ocr"},
	})
)

// DangerLevel is the reporter's assessment of risk.
type DangerLevel string

const (
	DangerLow      DangerLevel = "low"
	DangerMedium   DangerLevel = "medium"
	DangerHigh     DangerLevel = "high"
	DangerCritical DangerLevel = "critical"
)

var dangerLevels = NewTaxonomy("", map[string][]string{
	string(DangerLow):      {"baixo", "baixa"},
	string(DangerMedium):   {"medio", "media", "moderado"},
	string(DangerHigh):     {"alto", "alta"},
	string(DangerCritical): {"critico", "critica", "extremo"},
})

// ParseDangerLevel normalizes free text; unknown values yield "".
func ParseDangerLevel(raw string) DangerLevel {
	return DangerLevel(dangerLevels.Lookup(raw))
}

// PoliceReportPriority ranks a police report:
// urgent when a victim is present, the crime is in progress or danger is
// high; high when a weapon is involved, danger is medium or immediate action
// is requested; normal otherwise.
func PoliceReportPriority(victimPresent, inProgress, hasWeapon, immediateAction bool, danger DangerLevel) id.Priority {
	switch {
	case victimPresent || inProgress || danger == DangerHigh:
		return id.PriorityUrgent
	case hasWeapon || danger == DangerMedium || immediateAction:
		return id.PriorityHigh
	default:
		return id.PriorityNormal
	}
}

// TipPriority ranks an anonymous tip: urgent when flagged urgent or danger is
// critical; high when danger is high or evidence exists; normal otherwise.
func TipPriority(isUrgent, hasEvidence bool, danger DangerLevel) id.Priority {
	switch {
	case isUrgent || danger == DangerCritical:
		return id.PriorityUrgent
	case danger == DangerHigh || hasEvidence:
		return id.PriorityHigh
	default:
		return id.PriorityNormal
	}
}
