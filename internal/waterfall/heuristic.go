package waterfall

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leadboost/leadpipe/internal/model"
)

// industryKeywords maps each recognized industry to the keyword set that
// votes for it. The industry with the highest match count wins; ties keep
// the first industry in this (fixed) iteration order.
var industryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Software", []string{"software", "saas", "platform", "application", "cloud", "api", "developer tools", "technology company"}},
	{"Consulting", []string{"consulting", "consultancy", "advisory", "advisors", "professional services"}},
	{"E-commerce", []string{"e-commerce", "ecommerce", "online store", "marketplace", "online retailer", "shop online"}},
	{"Finance", []string{"finance", "financial services", "fintech", "investment", "capital management", "banking"}},
	{"Healthcare", []string{"healthcare", "health care", "medical", "clinic", "hospital", "pharma", "patient care"}},
	{"Marketing", []string{"marketing", "advertising", "digital marketing", "brand agency", "seo agency"}},
	{"Education", []string{"education", "edtech", "e-learning", "online courses", "university", "school"}},
	{"Real Estate", []string{"real estate", "realty", "property management", "properties for sale"}},
	{"Travel", []string{"travel agency", "tourism", "vacation packages", "hotel booking"}},
	{"Food & Beverage", []string{"restaurant", "catering", "food and beverage", "beverage company", "cuisine"}},
}

// employeeBandKeywords maps each employee band to the keyword set that
// implies it, checked in this fixed order before any numeric regex
// fallback runs — the first keyword hit wins, matching the original
// enrichment source's employee_keywords dict walk.
var employeeBandKeywords = []struct {
	band     model.EmployeeBand
	keywords []string
}{
	{model.Employees1To10, []string{"startup", "early stage", "small team", "small business"}},
	{model.Employees11To50, []string{"growing", "medium sized", "expanding", "scale up"}},
	{model.Employees51To200, []string{"established", "mid sized", "corporate", "professional"}},
	{model.Employees201To500, []string{"large", "enterprise", "major", "substantial"}},
	{model.Employees500Plus, []string{"huge", "massive", "very large", "major corporation"}},
}

var (
	employeeCountRe = regexp.MustCompile(`(?i)(\d+)[\s-](?:employees|person(?: team)?|staff)\b`)
	teamOfRe        = regexp.MustCompile(`(?i)team of (\d+)`)

	titleVocabulary = []string{
		"CEO", "CTO", "CFO", "COO", "President", "Co-Founder", "Founder",
		"VP", "Director", "Manager", "Owner", "Head of Sales", "Head of Marketing",
	}

	foundedYearRe = regexp.MustCompile(
		`(?i)(?:founded|established|started|launched|incorporated|since|from)\s+(?:in\s+)?'?(\d{2,4})\b`)
)

// nameTitlePattern and titleNamePattern are built lazily once the title
// vocabulary alternation is assembled.
var (
	nameTitleRe *regexp.Regexp
	titleNameRe *regexp.Regexp
)

func init() {
	alt := strings.Join(titleVocabulary, "|")
	namePart := `([A-Z][a-zA-Z'\-]+\s[A-Z][a-zA-Z'\-]+)`
	titlePart := `(` + alt + `)`
	titleNameRe = regexp.MustCompile(titlePart + `\s+` + namePart)
	nameTitleRe = regexp.MustCompile(namePart + `[,\s]+(?:is\s+(?:the\s+)?|the\s+)?` + titlePart)
}

// Heuristic derives fields purely from keyword/regex matching over the
// lead's known text and the scraper's output. It never calls out to a
// network or LLM.
type Heuristic struct{}

// NewHeuristic creates a Heuristic strategy.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Run executes the heuristic strategy. It never fails outright — a Result
// with Confidence 0 and no Fields set means nothing was determined.
func (h *Heuristic) Run(in Input) *Result {
	start := time.Now()
	text := strings.ToLower(in.aggregateText())

	var fields Fields
	var confidence float64

	if industry, ok := matchIndustry(text); ok {
		fields.Industry = industry
		confidence += 0.3
	}

	if band, ok := matchEmployeeBand(text); ok {
		fields.Employees = band
		confidence += 0.2
		fields.RevenueBand = model.EmployeeToRevenueBand(band)
		confidence += 0.1
	}

	if name, ok := matchContactName(in.aggregateText()); ok {
		fields.ContactName = name
		confidence += 0.15
	}
	if title, ok := matchContactTitle(in.aggregateText()); ok {
		fields.ContactTitle = title
		confidence += 0.1
	}

	if year, ok := matchFoundedYear(text); ok {
		fields.FoundedYear = &year
		confidence += 0.15
	}

	if confidence > 0.9 {
		confidence = 0.9
	}

	return &Result{
		Success:          confidence > 0,
		Fields:           fields,
		Method:           model.SourceHeuristic,
		Confidence:       confidence,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}

func matchIndustry(lowerText string) (string, bool) {
	bestName := ""
	bestCount := 0
	for _, ind := range industryKeywords {
		count := 0
		for _, kw := range ind.keywords {
			if strings.Contains(lowerText, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestName = ind.name
		}
	}
	if bestCount == 0 {
		return "", false
	}
	return bestName, true
}

func matchEmployeeBand(lowerText string) (model.EmployeeBand, bool) {
	for _, eb := range employeeBandKeywords {
		for _, kw := range eb.keywords {
			if strings.Contains(lowerText, kw) {
				return eb.band, true
			}
		}
	}
	if m := employeeCountRe.FindStringSubmatch(lowerText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return bandForCount(n), true
		}
	}
	if m := teamOfRe.FindStringSubmatch(lowerText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return bandForCount(n), true
		}
	}
	return "", false
}

func bandForCount(n int) model.EmployeeBand {
	switch {
	case n <= 10:
		return model.Employees1To10
	case n <= 50:
		return model.Employees11To50
	case n <= 200:
		return model.Employees51To200
	case n <= 500:
		return model.Employees201To500
	default:
		return model.Employees500Plus
	}
}

func matchContactTitle(text string) (string, bool) {
	if m := titleNameRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := nameTitleRe.FindStringSubmatch(text); m != nil {
		return m[2], true
	}
	return "", false
}

func matchContactName(text string) (string, bool) {
	if m := titleNameRe.FindStringSubmatch(text); m != nil {
		return m[2], true
	}
	if m := nameTitleRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// matchFoundedYear extracts a founded year from text, expanding two-digit
// years ('49 -> 2049, '50 -> 1950) and rejecting anything outside
// [1900, 2030].
func matchFoundedYear(lowerText string) (int, bool) {
	m := foundedYearRe.FindStringSubmatch(lowerText)
	if m == nil {
		return 0, false
	}
	digits := m[1]
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	var year int
	if len(digits) <= 2 {
		if n < 50 {
			year = 2000 + n
		} else {
			year = 1900 + n
		}
	} else {
		year = n
	}

	if !model.ValidFoundedYear(year) {
		return 0, false
	}
	return year, true
}
