package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
)

// Transform derives a cell from its source cell.
type Transform string

const (
	TransformCopy               Transform = "copy"
	TransformPercentageIncrease Transform = "percentage_increase"
	TransformPercentageDecrease Transform = "percentage_decrease"
	TransformMultiply           Transform = "multiply"
	TransformDivide             Transform = "divide"
	TransformAdd                Transform = "add"
	TransformSubtract           Transform = "subtract"
)

// Transforms lists every transform in tool-schema order.
func Transforms() []Transform {
	return []Transform{
		TransformCopy, TransformPercentageIncrease, TransformPercentageDecrease,
		TransformMultiply, TransformDivide, TransformAdd, TransformSubtract,
	}
}

// ParseTransform validates a transform name.
func ParseTransform(name string) (Transform, error) {
	t := Transform(strings.ToLower(strings.TrimSpace(name)))
	switch t {
	case TransformCopy, TransformPercentageIncrease, TransformPercentageDecrease,
		TransformMultiply, TransformDivide, TransformAdd, TransformSubtract:
		return t, nil
	case "":
		return TransformCopy, nil
	default:
		return "", sgerrors.New(sgerrors.CodeInvalidExpression, "unsupported column operation %q", name)
	}
}

// ColumnExpr describes a derived column: a source column and a transform with
// an optional operand (percent for the percentage transforms).
type ColumnExpr struct {
	Source    string    `json:"source"`
	Transform Transform `json:"transform"`
	Operand   float64   `json:"operand"`
}

const number = `([+-]?\d+(?:\.\d+)?)`

var exprPatterns = []struct {
	re    *regexp.Regexp
	build func(m []string) ColumnExpr
}{
	{
		regexp.MustCompile(`(?i)^` + number + `\s*%\s*(?:higher|more|greater|above|bigger|larger|increase)\s+(?:than|over|on|of)\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[2], TransformPercentageIncrease, atof(m[1])} },
	},
	{
		regexp.MustCompile(`(?i)^` + number + `\s*%\s*(?:lower|less|smaller|below|decrease)\s+(?:than|under|on|of)\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[2], TransformPercentageDecrease, atof(m[1])} },
	},
	{
		regexp.MustCompile(`(?i)^(?:increase|raise|grow)\s+(.+?)\s+by\s+` + number + `\s*%$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformPercentageIncrease, atof(m[2])} },
	},
	{
		regexp.MustCompile(`(?i)^(?:decrease|reduce|lower|cut)\s+(.+?)\s+by\s+` + number + `\s*%$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformPercentageDecrease, atof(m[2])} },
	},
	{
		regexp.MustCompile(`(?i)^double(?:\s+of)?\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformMultiply, 2} },
	},
	{
		regexp.MustCompile(`(?i)^triple(?:\s+of)?\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformMultiply, 3} },
	},
	{
		regexp.MustCompile(`(?i)^half(?:\s+of)?\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformMultiply, 0.5} },
	},
	{
		regexp.MustCompile(`(?i)^(?:copy(?:\s+of)?|same\s+as)\s+(.+)$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformCopy, 0} },
	},
	{
		regexp.MustCompile(`(?i)^(.+?)\s*(?:\+|\bplus\b)\s*` + number + `$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformAdd, atof(m[2])} },
	},
	{
		regexp.MustCompile(`(?i)^(.+?)\s*(?:-|\bminus\b)\s*` + number + `$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformSubtract, atof(m[2])} },
	},
	{
		regexp.MustCompile(`(?i)^(.+?)\s*(?:\*|\btimes\b|\bmultiplied\s+by\b)\s*` + number + `$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformMultiply, atof(m[2])} },
	},
	{
		regexp.MustCompile(`(?i)^(.+?)\s*(?:/|\bdivided\s+by\b)\s*` + number + `$`),
		func(m []string) ColumnExpr { return ColumnExpr{m[1], TransformDivide, atof(m[2])} },
	},
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// ParseColumnExpr understands short phrases such as "10% higher than Q2",
// "half of Total", "Q1 plus 5" or a bare column name (a copy). When t is given,
// text naming an existing column is always read as a copy of it, so headers
// like "Year-1" are not taken for arithmetic. The source is returned
// unresolved.
func ParseColumnExpr(t *sheet.Table, text string) (ColumnExpr, error) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "."))
	if text == "" {
		return ColumnExpr{}, sgerrors.New(sgerrors.CodeInvalidExpression, "column expression is empty")
	}
	if t != nil && t.HasColumn(cleanSource(text)) {
		return ColumnExpr{Source: cleanSource(text), Transform: TransformCopy}, nil
	}
	for _, p := range exprPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			expr := p.build(m)
			expr.Source = cleanSource(expr.Source)
			if expr.Source == "" {
				break
			}
			return expr, nil
		}
	}
	return ColumnExpr{Source: cleanSource(text), Transform: TransformCopy}, nil
}

var sourcePrefix = regexp.MustCompile(`(?i)^(?:the\s+)?(?:column\s+)?`)

func cleanSource(s string) string {
	s = strings.TrimSpace(s)
	s = sourcePrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, " column")
	return strings.Trim(strings.TrimSpace(s), `"'`+"`")
}

// apply computes one derived cell. Non-numeric sources yield an empty cell
// unless the transform is a copy.
func (e ColumnExpr) apply(v sheet.Value) sheet.Value {
	if e.Transform == TransformCopy {
		return v
	}
	f, ok := v.Float()
	if !ok {
		return sheet.Empty()
	}
	var out float64
	switch e.Transform {
	case TransformPercentageIncrease:
		out = f * (1 + e.Operand/100)
	case TransformPercentageDecrease:
		out = f * (1 - e.Operand/100)
	case TransformMultiply:
		out = f * e.Operand
	case TransformDivide:
		out = f / e.Operand
	case TransformAdd:
		out = f + e.Operand
	case TransformSubtract:
		out = f - e.Operand
	case TransformCopy:
		return v
	}
	return sheet.Number(sheet.Round2(out))
}

// formula renders the first-row spreadsheet formula for the expression.
func (e ColumnExpr) formula(cell string) string {
	operand := sheet.FormatNumber(e.Operand)
	switch e.Transform {
	case TransformPercentageIncrease:
		return fmt.Sprintf("=%s*(1+%s%%)", cell, operand)
	case TransformPercentageDecrease:
		return fmt.Sprintf("=%s*(1-%s%%)", cell, operand)
	case TransformMultiply:
		return fmt.Sprintf("=%s*%s", cell, operand)
	case TransformDivide:
		return fmt.Sprintf("=%s/%s", cell, operand)
	case TransformAdd:
		return fmt.Sprintf("=%s+%s", cell, operand)
	case TransformSubtract:
		return fmt.Sprintf("=%s-%s", cell, operand)
	case TransformCopy:
		return "=" + cell
	default:
		return "=" + cell
	}
}

// ColumnChange is the outcome of AddColumn and DeleteColumn.
type ColumnChange struct {
	Table    *sheet.Table `json:"-"`
	Column   string       `json:"column"`
	Source   string       `json:"source,omitempty"`
	Formula  string       `json:"formula,omitempty"`
	Replaced bool         `json:"replaced,omitempty"`
	Computed int          `json:"computed"`
}

// AddColumn appends a derived column, or overwrites a column that already has
// the same name.
func AddColumn(t *sheet.Table, name string, expr ColumnExpr) (*ColumnChange, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression, "new column needs a name")
	}
	if expr.Transform == "" {
		expr.Transform = TransformCopy
	}
	if _, err := ParseTransform(string(expr.Transform)); err != nil {
		return nil, err
	}
	src, err := t.ResolveColumn(expr.Source)
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.CodeInvalidExpression, err,
			"cannot derive %q: source column %q not found", name, expr.Source)
	}
	if expr.Transform == TransformDivide && expr.Operand == 0 {
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression, "cannot divide %s by zero", t.Header()[src])
	}

	values := make([]sheet.Value, t.Rows())
	computed := 0
	for r := range values {
		values[r] = expr.apply(t.Cell(r, src))
		if !values[r].IsEmpty() {
			computed++
		}
	}

	firstCell := sheet.ColumnLetter(src) + "2"
	out := t.WithColumn(name, values)
	return &ColumnChange{
		Table:    out,
		Column:   name,
		Source:   t.Header()[src],
		Formula:  expr.formula(firstCell),
		Replaced: out.Columns() == t.Columns(),
		Computed: computed,
	}, nil
}

// DeleteColumn removes a column and its cells from every row.
func DeleteColumn(t *sheet.Table, column string) (*ColumnChange, error) {
	idx, err := t.ResolveColumn(column)
	if err != nil {
		return nil, err
	}
	return &ColumnChange{
		Table:  t.WithoutColumn(idx),
		Column: t.Header()[idx],
	}, nil
}
