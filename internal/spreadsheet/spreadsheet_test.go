package spreadsheet

import (
	"testing"

	"sheetgenie/internal/chart"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"

	"github.com/stretchr/testify/require"
)

func scenarioTable(t *testing.T) *sheet.Table {
	t.Helper()
	table, err := sheet.FromAny([][]any{
		{"Product", "Q1", "Q2"},
		{"A", 100, 200},
		{"B", 50, 80},
	})
	require.NoError(t, err)
	return table
}

func TestAggregateSumOfQ1(t *testing.T) {
	res, err := Aggregate(scenarioTable(t), "q1", OpSum)
	require.NoError(t, err)
	require.Equal(t, 150.0, res.Value)
	require.Equal(t, "Q1", res.Column)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, "=SUM(B2:B3)", res.Formula)
	require.Equal(t, "The sum of Q1 is 150.", res.Describe())
}

func TestAggregateSkipsNonNumericCells(t *testing.T) {
	table, err := sheet.FromAny([][]any{{"Amount"}, {10}, {"n/a"}, {5.5}, {""}, {"x"}})
	require.NoError(t, err)

	res, err := Aggregate(table, "Amount", OpSum)
	require.NoError(t, err)
	require.Equal(t, 15.5, res.Value)
	require.Equal(t, 2, res.Skipped)

	for _, op := range AggregateOps() {
		_, err := Aggregate(table, "Amount", op)
		require.NoError(t, err, op)
	}
}

func TestAggregateEdgeCases(t *testing.T) {
	table := scenarioTable(t)

	_, err := Aggregate(table, "Q9", OpSum)
	require.ErrorIs(t, err, sgerrors.CodeColumnNotFound)

	_, err = Aggregate(table, "Product", OpAverage)
	require.ErrorIs(t, err, sgerrors.CodeInsufficientData)

	count, err := Aggregate(table, "Product", OpCount)
	require.NoError(t, err)
	require.Zero(t, count.Value)

	total, err := Aggregate(table, "Product", OpSum)
	require.NoError(t, err)
	require.Zero(t, total.Value)

	minimum, err := Aggregate(table, "Q2", OpMin)
	require.NoError(t, err)
	require.Equal(t, 80.0, minimum.Value)
}

func TestParseAggregateOp(t *testing.T) {
	op, err := ParseAggregateOp("Mean")
	require.NoError(t, err)
	require.Equal(t, OpAverage, op)

	_, err = ParseAggregateOp("median")
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)
}

func TestAddColumnTenPercentHigher(t *testing.T) {
	table := scenarioTable(t)
	expr, err := ParseColumnExpr(table, "10% higher than Q2")
	require.NoError(t, err)

	change, err := AddColumn(table, "Q2Plus10", expr)
	require.NoError(t, err)

	out := change.Table
	require.Equal(t, []string{"Product", "Q1", "Q2", "Q2Plus10"}, out.Header())
	require.Equal(t, "220", out.Cell(0, 3).String())
	require.Equal(t, "88", out.Cell(1, 3).String())
	require.Equal(t, "=C2*(1+10%)", change.Formula)
	require.False(t, change.Replaced)
	require.Equal(t, 3, table.Columns(), "source table is untouched")
}

func TestAddColumnOverwritesSameName(t *testing.T) {
	table := scenarioTable(t)
	first, err := AddColumn(table, "Derived", ColumnExpr{Source: "Q1", Transform: TransformMultiply, Operand: 2})
	require.NoError(t, err)

	second, err := AddColumn(first.Table, "derived", ColumnExpr{Source: "Q1", Transform: TransformAdd, Operand: 1})
	require.NoError(t, err)

	require.True(t, second.Replaced)
	require.Equal(t, 4, second.Table.Columns())
	require.Equal(t, "Derived", second.Table.Header()[3])
	require.Equal(t, "101", second.Table.Cell(0, 3).String())
}

func TestAddColumnFailures(t *testing.T) {
	table := scenarioTable(t)

	_, err := AddColumn(table, "X", ColumnExpr{Source: "Missing", Transform: TransformCopy})
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)

	_, err = AddColumn(table, "X", ColumnExpr{Source: "Q1", Transform: TransformDivide})
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)

	_, err = AddColumn(table, "  ", ColumnExpr{Source: "Q1"})
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)

	_, err = AddColumn(table, "X", ColumnExpr{Source: "Q1", Transform: "square"})
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)
}

func TestAddColumnNonNumericSource(t *testing.T) {
	table := scenarioTable(t)

	doubled, err := AddColumn(table, "P2", ColumnExpr{Source: "Product", Transform: TransformMultiply, Operand: 2})
	require.NoError(t, err)
	require.True(t, doubled.Table.Cell(0, 3).IsEmpty())
	require.Zero(t, doubled.Computed)

	copied, err := AddColumn(table, "Name", ColumnExpr{Source: "Product", Transform: TransformCopy})
	require.NoError(t, err)
	require.Equal(t, "A", copied.Table.Cell(0, 3).String())
}

func TestAddThenDeleteRestoresTable(t *testing.T) {
	table := scenarioTable(t)
	added, err := AddColumn(table, "X", ColumnExpr{Source: "Q1", Transform: TransformPercentageDecrease, Operand: 25})
	require.NoError(t, err)

	removed, err := DeleteColumn(added.Table, "X")
	require.NoError(t, err)
	require.True(t, table.Equal(removed.Table))
}

func TestDeleteColumn(t *testing.T) {
	table := scenarioTable(t)

	_, err := DeleteColumn(table, "Q7")
	require.ErrorIs(t, err, sgerrors.CodeColumnNotFound)

	change, err := DeleteColumn(table, "product")
	require.NoError(t, err)
	require.Equal(t, "Product", change.Column)
	require.Equal(t, []string{"Q1", "Q2"}, change.Table.Header())
	require.Equal(t, 2, change.Table.Rows())
}

func TestParseColumnExpr(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnExpr
	}{
		{"10% higher than Q2", ColumnExpr{"Q2", TransformPercentageIncrease, 10}},
		{"20% lower than column Total.", ColumnExpr{"Total", TransformPercentageDecrease, 20}},
		{"increase Q1 by 5%", ColumnExpr{"Q1", TransformPercentageIncrease, 5}},
		{"double Q1", ColumnExpr{"Q1", TransformMultiply, 2}},
		{"half of Q1 Sales", ColumnExpr{"Q1 Sales", TransformMultiply, 0.5}},
		{"Q1 plus 5", ColumnExpr{"Q1", TransformAdd, 5}},
		{"Q1 - 2.5", ColumnExpr{"Q1", TransformSubtract, 2.5}},
		{"Q1 times 3", ColumnExpr{"Q1", TransformMultiply, 3}},
		{"Total / 4", ColumnExpr{"Total", TransformDivide, 4}},
		{"copy of 'Product'", ColumnExpr{"Product", TransformCopy, 0}},
		{"Q2", ColumnExpr{"Q2", TransformCopy, 0}},
	}
	for _, tt := range tests {
		got, err := ParseColumnExpr(nil, tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseColumnExpr(nil, "  ")
	require.ErrorIs(t, err, sgerrors.CodeInvalidExpression)
}

func TestParseColumnExprPrefersExistingColumn(t *testing.T) {
	table := sheet.MustNew([][]sheet.Value{{sheet.Text("Year-1")}, {sheet.Number(3)}})
	got, err := ParseColumnExpr(table, "Year-1")
	require.NoError(t, err)
	require.Equal(t, ColumnExpr{Source: "Year-1", Transform: TransformCopy}, got)
}

func TestBuildChartMultiSeries(t *testing.T) {
	spec, err := BuildChart(scenarioTable(t), chart.KindBar, "Product", []string{"Q1", "Q2"}, chart.DefaultOptions(2), "")
	require.NoError(t, err)

	require.Equal(t, chart.KindBar, spec.Kind)
	require.Equal(t, []string{"Q1", "Q2"}, spec.YKeys)
	require.Len(t, spec.Series, 2)
	require.NotEqual(t, spec.Series[0].Color, spec.Series[1].Color)
	require.Equal(t, "Q1 vs Q2 by Product", spec.Title)
	require.Equal(t, 100.0, spec.Data[0]["Q1"])
	require.Equal(t, "B", spec.Data[1]["Product"])
}

func TestBuildChartRejectsUnknownAxis(t *testing.T) {
	table := scenarioTable(t)

	spec, err := BuildChart(table, chart.KindLine, "Region", []string{"Q1"}, chart.Options{}, "")
	require.Nil(t, spec)
	require.ErrorIs(t, err, sgerrors.CodeAxisKeyNotFound)

	spec, err = BuildChart(table, chart.KindLine, "Product", []string{"Q1", "Q3"}, chart.Options{}, "")
	require.Nil(t, spec)
	require.ErrorIs(t, err, sgerrors.CodeAxisKeyNotFound)

	spec, err = BuildChart(table, chart.KindLine, "Product", nil, chart.Options{}, "")
	require.Nil(t, spec)
	require.ErrorIs(t, err, sgerrors.CodeAxisKeyNotFound)
}

func TestBuildChartUnknownKindBecomesBar(t *testing.T) {
	spec, err := BuildChart(scenarioTable(t), chart.Kind("radar"), "Product", []string{"Q1"}, chart.Options{Palette: "business"}, "Sales")
	require.NoError(t, err)
	require.Equal(t, chart.KindBar, spec.Kind)
	require.Equal(t, "#2563eb", spec.Series[0].Color)
	require.Equal(t, "Sales", spec.Title)
}
