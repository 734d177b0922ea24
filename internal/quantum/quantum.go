// Package quantum parses sentence quanta: natural-language durations as
// judges write them, the dataset's compact notation, and money amounts.
//
// Durations convert to days at 365 days per year and 30 days per month,
// except that a term of exactly twelve months counts as one full year.
// Unparseable quanta stay unresolved; they are never coerced to zero.
package quantum

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jurimetrics/sentenza/internal/model"
)

const (
	daysPerYear  = 365
	daysPerMonth = 30
)

// termPattern matches one quantity-unit pair: "2 years", "18-month",
// "90d", "six months", "240 hours"
var termPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)[\s-]*(years?|yrs?|y|months?|mos?|m|days?|d|hours?|hrs?|h)\b`)

// moneyPattern matches a dollar amount with optional thousands separators
var moneyPattern = regexp.MustCompile(`\$?\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?`)

var wordNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// lessADayPattern matches the "less a day" qualifier in any of its spellings
var lessADayPattern = regexp.MustCompile(`(?i)\bless\s+(?:a|one|1)\s+day\b`)

// lifePattern matches life terms, which carry no day count
var lifePattern = regexp.MustCompile(`(?i)\blife\b`)

// Term is one quantity-unit pair in a duration expression
type Term struct {
	Quantity float64
	Unit     model.QuantumUnit
}

// Days converts the term to days. A term of exactly twelve months counts
// as a full year. Hour terms carry no day value.
func (t Term) Days() (float64, bool) {
	switch t.Unit {
	case model.UnitYears:
		return t.Quantity * daysPerYear, true
	case model.UnitMonths:
		if t.Quantity == 12 {
			return daysPerYear, true
		}
		return t.Quantity * daysPerMonth, true
	case model.UnitDays:
		return t.Quantity, true
	default:
		return 0, false
	}
}

// Expression is a parsed sentence quantum
type Expression struct {
	Terms         []Term
	LessADay      bool // "two years less a day"
	Indeterminate bool // Indeterminate or life terms, no day count
	Raw           string
}

// TotalDays sums the duration terms in days, rounded to the nearest day.
// Returns nil for indeterminate expressions and expressions with no
// day-convertible term.
func (e Expression) TotalDays() *int {
	if e.Indeterminate {
		return nil
	}

	var total float64
	found := false
	for _, t := range e.Terms {
		if d, ok := t.Days(); ok {
			total += d
			found = true
		}
	}
	if !found {
		return nil
	}

	if e.LessADay {
		total--
	}
	days := int(math.Round(total))
	return &days
}

// Parse reads a duration expression in natural or compact form:
// "2 years", "eighteen months", "two years less a day", "1y&6m&3d",
// "indeterminate", "life". Zero quantities are rejected.
func Parse(raw string) (Expression, error) {
	expr := Expression{Raw: raw}

	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return expr, fmt.Errorf("%w: empty quantum", model.ErrQuantumUnparseable)
	}

	if strings.Contains(s, "indeterminate") || lifePattern.MatchString(s) {
		expr.Indeterminate = true
		return expr, nil
	}

	if lessADayPattern.MatchString(s) {
		expr.LessADay = true
		s = lessADayPattern.ReplaceAllString(s, " ")
	}

	for _, m := range termPattern.FindAllStringSubmatch(s, -1) {
		quantity, err := parseQuantity(m[1])
		if err != nil {
			return Expression{Raw: raw}, fmt.Errorf("%w: %q", model.ErrQuantumUnparseable, raw)
		}
		if quantity == 0 {
			return Expression{Raw: raw}, fmt.Errorf("%w: zero quantum in %q", model.ErrQuantumUnparseable, raw)
		}
		expr.Terms = append(expr.Terms, Term{Quantity: quantity, Unit: unitFor(m[2])})
	}

	if len(expr.Terms) == 0 {
		return Expression{Raw: raw}, fmt.Errorf("%w: %q", model.ErrQuantumUnparseable, raw)
	}
	return expr, nil
}

func parseQuantity(s string) (float64, error) {
	if n, ok := wordNumbers[s]; ok {
		return n, nil
	}
	return strconv.ParseFloat(s, 64)
}

func unitFor(s string) model.QuantumUnit {
	switch s[0] {
	case 'y', 'Y':
		return model.UnitYears
	case 'm', 'M':
		return model.UnitMonths
	case 'd', 'D':
		return model.UnitDays
	default:
		return model.UnitHours
	}
}

// ParseMoney reads a dollar amount: "$5,000", "1500.00", "$80". Amounts
// must be positive.
func ParseMoney(raw string) (float64, error) {
	m := moneyPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", model.ErrQuantumUnparseable, raw)
	}

	whole := strings.ReplaceAll(m[1], ",", "")
	s := whole
	if m[2] != "" {
		s = whole + "." + m[2]
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("%w: %q", model.ErrQuantumUnparseable, raw)
	}
	return amount, nil
}

// FormatMoney renders an amount the way the dataset stores fines
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// DetectMode scans sentencing language for how a term runs relative to
// other counts. Returns the empty mode when the text does not say.
func DetectMode(text string) model.SentenceMode {
	s := strings.ToLower(text)
	consecutive := strings.Index(s, "consecutive")
	concurrent := strings.Index(s, "concurrent")

	switch {
	case consecutive >= 0 && (concurrent < 0 || consecutive < concurrent):
		return model.ModeConsecutive
	case concurrent >= 0:
		return model.ModeConcurrent
	default:
		return ""
	}
}

// ParseCustody reads the compact custody notation used across the
// dataset: a duration with an optional mode after the first hyphen, e.g.
// "1y&6m&3d-consecutive", "90d-concurrent", "indeterminate".
func ParseCustody(raw string) (model.SentenceComponent, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	quantumPart := s
	mode := model.SentenceMode("")

	if idx := strings.Index(s, "-"); idx >= 0 {
		switch s[idx+1:] {
		case "consecutive":
			mode = model.ModeConsecutive
		case "concurrent":
			mode = model.ModeConcurrent
		default:
			return model.SentenceComponent{}, fmt.Errorf("%w: unknown mode in %q", model.ErrQuantumUnparseable, raw)
		}
		quantumPart = s[:idx]
	}

	expr, err := Parse(quantumPart)
	if err != nil {
		return model.SentenceComponent{}, err
	}

	c := model.SentenceComponent{
		Penalty:       model.PenaltyImprisonment,
		Mode:          mode,
		Indeterminate: expr.Indeterminate,
		Raw:           raw,
	}
	applyExpression(&c, expr)
	return c, nil
}

// conditionPenalties maps compact condition types to penalties
var conditionPenalties = map[string]model.PenaltyType{
	"probation": model.PenaltyProbation,
	"ltso":      model.PenaltyLongTermSupervision,
	"ircs":      model.PenaltyIRCS,
	"parole":    model.PenaltyParoleIneligibility,
}

// ParseCondition reads the compact condition notation. Both orders occur
// in the dataset ("18m-probation" and "ltso-10y"), a bare duration means
// probation, and a discharge with zero or no duration is absolute while
// a timed discharge is conditional.
func ParseCondition(raw string) (model.SentenceComponent, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return model.SentenceComponent{}, fmt.Errorf("%w: empty condition", model.ErrQuantumUnparseable)
	}

	left, right, hasSep := strings.Cut(s, "-")

	var kind, duration string
	switch {
	case !hasSep:
		if left == "discharge" {
			kind = "discharge"
		} else {
			kind, duration = "probation", left
		}
	case isConditionType(left):
		kind, duration = left, right
	case isConditionType(right):
		kind, duration = right, left
	default:
		return model.SentenceComponent{}, fmt.Errorf("%w: unknown condition type in %q", model.ErrQuantumUnparseable, raw)
	}

	if kind == "discharge" {
		if duration == "" || duration == "0" {
			return model.SentenceComponent{Penalty: model.PenaltyAbsoluteDischarge, Raw: raw}, nil
		}
		expr, err := Parse(duration)
		if err != nil {
			return model.SentenceComponent{}, err
		}
		c := model.SentenceComponent{Penalty: model.PenaltyConditionalDischarge, Raw: raw}
		applyExpression(&c, expr)
		return c, nil
	}

	expr, err := Parse(duration)
	if err != nil {
		return model.SentenceComponent{}, err
	}
	c := model.SentenceComponent{Penalty: conditionPenalties[kind], Raw: raw}
	applyExpression(&c, expr)
	return c, nil
}

func isConditionType(s string) bool {
	if s == "discharge" {
		return true
	}
	_, ok := conditionPenalties[s]
	return ok
}

// Resolve fills the canonical quantum fields of a component. Raw wording
// is parsed when present; otherwise the stated (quantum, unit) pair is
// converted directly. The stated pair is never rewritten, only Days is
// derived. A failure leaves the component untouched so the caller can
// hold it for review.
func Resolve(c *model.SentenceComponent) error {
	if c.Penalty == model.PenaltyAbsoluteDischarge {
		// no quantum to resolve
		return nil
	}

	raw := strings.TrimSpace(c.Raw)
	if raw == "" {
		return resolveStated(c)
	}

	switch c.Penalty {
	case model.PenaltyFine, model.PenaltyRestitution:
		amount, err := ParseMoney(raw)
		if err != nil {
			return err
		}
		c.Quantum = amount
		c.Unit = model.UnitDollars
		c.Days = nil
		return nil

	default:
		expr, err := Parse(raw)
		if err != nil {
			return err
		}
		if expr.Indeterminate {
			c.Indeterminate = true
			c.Quantum = 0
			c.Unit = ""
			c.Days = nil
			return nil
		}
		applyExpression(c, expr)
		return nil
	}
}

// resolveStated derives Days from a component that arrived with the
// (quantum, unit) pair already structured
func resolveStated(c *model.SentenceComponent) error {
	if c.Indeterminate {
		c.Days = nil
		return nil
	}
	if c.Quantum <= 0 {
		return fmt.Errorf("%w: component has no quantum", model.ErrQuantumUnparseable)
	}

	switch c.Unit {
	case model.UnitDollars, model.UnitHours:
		c.Days = nil
		return nil
	case model.UnitYears, model.UnitMonths, model.UnitDays:
		d, _ := Term{Quantity: c.Quantum, Unit: c.Unit}.Days()
		days := int(math.Round(d))
		c.Days = &days
		return nil
	default:
		return fmt.Errorf("%w: unknown unit %q", model.ErrQuantumUnparseable, c.Unit)
	}
}

// applyExpression writes the canonical quantum of a parsed expression.
// Single plain terms keep their stated unit; everything else collapses
// to days so the adjustment survives.
func applyExpression(c *model.SentenceComponent, expr Expression) {
	if expr.Indeterminate {
		c.Indeterminate = true
		return
	}

	days := expr.TotalDays()
	c.Days = days

	if len(expr.Terms) == 1 && !expr.LessADay {
		c.Quantum = expr.Terms[0].Quantity
		c.Unit = expr.Terms[0].Unit
		return
	}
	if days != nil {
		c.Quantum = float64(*days)
		c.Unit = model.UnitDays
	}
}
