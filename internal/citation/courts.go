package citation

import (
	"strings"

	"github.com/jurimetrics/sentenza/internal/model"
)

// CourtInfo describes one court in the Canadian registry
type CourtInfo struct {
	Code         string           // CanLII database code, e.g. "skca"
	Name         string
	Level        model.CourtLevel
	Jurisdiction string           // Two-letter province code, "ca" for federal courts
}

// courts maps CanLII court codes to registry entries. Alberta, Saskatchewan,
// Manitoba and New Brunswick renamed their Queen's Bench courts in 2022, so
// both the qb and kb codes resolve. Nunavut's single-level court sits at the
// superior tier.
var courts = map[string]CourtInfo{
	// Supreme Court of Canada
	"scc": {"scc", "Supreme Court of Canada", model.LevelSupreme, "ca"},

	// Federal appellate courts
	"fca":  {"fca", "Federal Court of Appeal", model.LevelAppeal, "ca"},
	"cmac": {"cmac", "Court Martial Appeal Court of Canada", model.LevelAppeal, "ca"},

	// Provincial and territorial courts of appeal
	"bcca":  {"bcca", "Court of Appeal for British Columbia", model.LevelAppeal, "bc"},
	"abca":  {"abca", "Court of Appeal of Alberta", model.LevelAppeal, "ab"},
	"skca":  {"skca", "Court of Appeal for Saskatchewan", model.LevelAppeal, "sk"},
	"mbca":  {"mbca", "Court of Appeal of Manitoba", model.LevelAppeal, "mb"},
	"onca":  {"onca", "Court of Appeal for Ontario", model.LevelAppeal, "on"},
	"qcca":  {"qcca", "Court of Appeal of Quebec", model.LevelAppeal, "qc"},
	"nbca":  {"nbca", "Court of Appeal of New Brunswick", model.LevelAppeal, "nb"},
	"nsca":  {"nsca", "Nova Scotia Court of Appeal", model.LevelAppeal, "ns"},
	"peca":  {"peca", "Prince Edward Island Court of Appeal", model.LevelAppeal, "pe"},
	"nlca":  {"nlca", "Court of Appeal of Newfoundland and Labrador", model.LevelAppeal, "nl"},
	"ykca":  {"ykca", "Court of Appeal of Yukon", model.LevelAppeal, "yk"},
	"nwtca": {"nwtca", "Court of Appeal for the Northwest Territories", model.LevelAppeal, "nt"},
	"nuca":  {"nuca", "Court of Appeal of Nunavut", model.LevelAppeal, "nu"},

	// Superior trial courts
	"fc":    {"fc", "Federal Court", model.LevelSuperior, "ca"},
	"bcsc":  {"bcsc", "Supreme Court of British Columbia", model.LevelSuperior, "bc"},
	"abqb":  {"abqb", "Court of Queen's Bench of Alberta", model.LevelSuperior, "ab"},
	"abkb":  {"abkb", "Court of King's Bench of Alberta", model.LevelSuperior, "ab"},
	"skqb":  {"skqb", "Court of Queen's Bench for Saskatchewan", model.LevelSuperior, "sk"},
	"skkb":  {"skkb", "Court of King's Bench for Saskatchewan", model.LevelSuperior, "sk"},
	"mbqb":  {"mbqb", "Court of Queen's Bench of Manitoba", model.LevelSuperior, "mb"},
	"mbkb":  {"mbkb", "Court of King's Bench of Manitoba", model.LevelSuperior, "mb"},
	"onsc":  {"onsc", "Ontario Superior Court of Justice", model.LevelSuperior, "on"},
	"qccs":  {"qccs", "Superior Court of Quebec", model.LevelSuperior, "qc"},
	"nbqb":  {"nbqb", "Court of Queen's Bench of New Brunswick", model.LevelSuperior, "nb"},
	"nbkb":  {"nbkb", "Court of King's Bench of New Brunswick", model.LevelSuperior, "nb"},
	"nssc":  {"nssc", "Supreme Court of Nova Scotia", model.LevelSuperior, "ns"},
	"pesc":  {"pesc", "Supreme Court of Prince Edward Island", model.LevelSuperior, "pe"},
	"nlsc":  {"nlsc", "Supreme Court of Newfoundland and Labrador", model.LevelSuperior, "nl"},
	"yksc":  {"yksc", "Supreme Court of Yukon", model.LevelSuperior, "yk"},
	"nwtsc": {"nwtsc", "Supreme Court of the Northwest Territories", model.LevelSuperior, "nt"},
	"nucj":  {"nucj", "Nunavut Court of Justice", model.LevelSuperior, "nu"},

	// Provincial and territorial courts
	"bcpc": {"bcpc", "Provincial Court of British Columbia", model.LevelProvincial, "bc"},
	"abpc": {"abpc", "Provincial Court of Alberta", model.LevelProvincial, "ab"},
	"abcj": {"abcj", "Alberta Court of Justice", model.LevelProvincial, "ab"},
	"skpc": {"skpc", "Provincial Court of Saskatchewan", model.LevelProvincial, "sk"},
	"mbpc": {"mbpc", "Provincial Court of Manitoba", model.LevelProvincial, "mb"},
	"oncj": {"oncj", "Ontario Court of Justice", model.LevelProvincial, "on"},
	"qccq": {"qccq", "Court of Quebec", model.LevelProvincial, "qc"},
	"nbpc": {"nbpc", "Provincial Court of New Brunswick", model.LevelProvincial, "nb"},
	"nspc": {"nspc", "Provincial Court of Nova Scotia", model.LevelProvincial, "ns"},
	"pepc": {"pepc", "Provincial Court of Prince Edward Island", model.LevelProvincial, "pe"},
	"nlpc": {"nlpc", "Provincial Court of Newfoundland and Labrador", model.LevelProvincial, "nl"},
	"yktc": {"yktc", "Territorial Court of Yukon", model.LevelProvincial, "yk"},
	"nttc": {"nttc", "Territorial Court of the Northwest Territories", model.LevelProvincial, "nt"},
}

// LookupCourt resolves a court code to its registry entry
func LookupCourt(code string) (CourtInfo, bool) {
	info, ok := courts[strings.ToLower(strings.TrimSpace(code))]
	return info, ok
}

// CourtLevel returns the hierarchy level for a court code, or LevelUnknown
// when the code is not registered
func CourtLevel(code string) model.CourtLevel {
	if info, ok := LookupCourt(code); ok {
		return info.Level
	}
	return model.LevelUnknown
}
