package events

import (
	"strings"

	"golang.org/x/text/cases"
)

// Program is the admission track an event belongs to
type Program string

const (
	ProgramKEAM          Program = "KEAM"
	ProgramLLB3          Program = "LLB 3 Year"
	ProgramLLB5          Program = "LLB 5 Year"
	ProgramLLM           Program = "LLM"
	ProgramPGNursing     Program = "PG Nursing"
	ProgramNursingParamd Program = "B.Sc Nursing & Paramedical"
	ProgramBPharmLateral Program = "B.Pharm Lateral Entry"
)

// Programs lists the closed set of programs in display order
var Programs = []Program{
	ProgramKEAM,
	ProgramLLB3,
	ProgramLLB5,
	ProgramLLM,
	ProgramPGNursing,
	ProgramNursingParamd,
	ProgramBPharmLateral,
}

// Category is the admission-process stage an event represents
type Category string

const (
	CategoryOnlineApplication       Category = "Online Application"
	CategoryMemoClearance           Category = "Memo Clearance"
	CategoryOptionRegistration      Category = "Option Registration"
	CategoryProvisionalCategoryList Category = "Provisional Category List"
	CategoryProvisionalRankList     Category = "Provisional Rank List"
	CategoryProvisionalAllotment    Category = "Provisional Allotment"
	CategoryFinalAllotment          Category = "Final Allotment"
)

// Categories lists the closed set of categories in process order, as offered
// on the entry form
var Categories = []Category{
	CategoryOnlineApplication,
	CategoryMemoClearance,
	CategoryOptionRegistration,
	CategoryProvisionalCategoryList,
	CategoryProvisionalRankList,
	CategoryProvisionalAllotment,
	CategoryFinalAllotment,
}

// UnknownPriority is assigned to categories outside the closed set
const UnknownPriority = 99

var priorities = map[Category]int{
	CategoryFinalAllotment:          1,
	CategoryProvisionalAllotment:    2,
	CategoryProvisionalRankList:     3,
	CategoryProvisionalCategoryList: 4,
	CategoryOptionRegistration:      5,
	CategoryMemoClearance:           6,
	CategoryOnlineApplication:       7,
}

// Priority returns the sort weight of a category; lower surfaces first
func Priority(c Category) int {
	if p, ok := priorities[c]; ok {
		return p
	}
	return UnknownPriority
}

// sameFold compares two labels ignoring case and surrounding space.
// Casers are stateful, so one is built per call.
func sameFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// ParseProgram matches s against the known programs ignoring case
func ParseProgram(s string) (Program, bool) {
	for _, p := range Programs {
		if sameFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// ParseCategory matches s against the known categories ignoring case
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if sameFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}
