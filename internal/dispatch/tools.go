package dispatch

import (
	"fmt"

	"sheetgenie/internal/chart"
	"sheetgenie/internal/llm"
	"sheetgenie/internal/spreadsheet"
)

// Tools returns one descriptor per tool operation.
func Tools() []llm.ToolDefinition {
	ops := ToolOperations()
	defs := make([]llm.ToolDefinition, 0, len(ops))
	for _, op := range ops {
		defs = append(defs, toolFor(op))
	}
	return defs
}

func str(desc string) llm.Property {
	return llm.Property{Type: "string", Description: desc}
}

func strList(desc string) llm.Property {
	return llm.Property{Type: "array", Description: desc, Items: &llm.Property{Type: "string"}}
}

func enum[T ~string](desc string, values []T) llm.Property {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return llm.Property{Type: "string", Description: desc, Enum: out}
}

func object(props map[string]llm.Property, required ...string) llm.ParameterSchema {
	return llm.ParameterSchema{Type: "object", Properties: props, Required: required}
}

const rangeDesc = "Range specification like 'A1:A10' or 'B2:D5'. Row 1 is the header row."

func toolFor(op Operation) llm.ToolDefinition {
	def := llm.ToolDefinition{Name: string(op)}
	switch op {
	case OpAggregate:
		def.Description = "Compute the sum, average, min, max or count of a whole column"
		def.Parameters = object(map[string]llm.Property{
			"column": str("Column name"),
			"op":     enum("Aggregation to compute", spreadsheet.AggregateOps()),
		}, "column", "op")
	case OpAddColumn:
		def.Description = "Add a column derived from an existing column, e.g. 10% higher than Q2. A column with the same name is overwritten"
		def.Parameters = object(map[string]llm.Property{
			"name":       str("Name of the new column"),
			"source":     str("Existing column the values are derived from"),
			"transform":  enum("How each value is derived from the source", spreadsheet.Transforms()),
			"operand":    {Type: "number", Description: "Percent for percentage transforms, otherwise the number to apply"},
			"expression": str("Alternative to source/transform: a short phrase like '10% higher than Q2' or 'Q1 plus 5'"),
		}, "name")
	case OpDeleteColumn:
		def.Description = "Delete a column and all its cells"
		def.Parameters = object(map[string]llm.Property{
			"column": str("Column name to delete"),
		}, "column")
	case OpBuildChart:
		def.Description = "Generate a chart from the data with one x column and one or more y columns"
		def.Parameters = object(map[string]llm.Property{
			"chart_type": enum("Type of chart to generate", chart.Kinds()),
			"x_key":      str("Column name for the x-axis (categories)"),
			"y_keys":     strList("Column names plotted as series"),
			"title":      str("Chart title"),
			"palette":    enum("Color palette", chart.PaletteNames()),
		}, "chart_type", "x_key", "y_keys")
	case OpAnalyzeTrend:
		def.Description = "Describe whether a column increases or decreases from first to last value"
		def.Parameters = object(map[string]llm.Property{
			"column": str("Column name"),
		}, "column")
	case OpSummarize:
		def.Description = "Produce a data analysis report: statistics, trends, correlations, outliers and recommendations"
		def.Parameters = object(map[string]llm.Property{})
	case OpSumRange:
		def.Description = "Calculate the sum of a range of cells"
		def.Parameters = object(map[string]llm.Property{"range_spec": str(rangeDesc)}, "range_spec")
	case OpAverageRange:
		def.Description = "Calculate the average of a range of cells"
		def.Parameters = object(map[string]llm.Property{"range_spec": str(rangeDesc)}, "range_spec")
	case OpCreatePivot:
		def.Description = "Create a pivot table from the data"
		def.Parameters = object(map[string]llm.Property{
			"rows":    strList("List of column names to use as rows"),
			"values":  strList("List of column names to aggregate"),
			"aggfunc": enum("Aggregation function to use", []string{"sum", "mean", "count", "max", "min"}),
		}, "rows", "values")
	case OpFormatCells:
		def.Description = "Format cells in the specified range"
		def.Parameters = object(map[string]llm.Property{
			"range_spec":   str(rangeDesc),
			"format_type":  enum("Type of formatting to apply", spreadsheet.FormatTypes()),
			"format_value": str("Additional format value (e.g., color code)"),
		}, "range_spec", "format_type")
	case OpForecast:
		def.Description = "Forecast the next values of a numeric column along its linear trend"
		def.Parameters = object(map[string]llm.Property{
			"column":  str("Column name"),
			"periods": {Type: "integer", Description: fmt.Sprintf("Number of periods to forecast (1-%d)", spreadsheet.MaxForecastPeriods)},
		}, "column")
	case OpSuggestChart:
		def.Description = "Recommend chart types for a pair of columns"
		def.Parameters = object(map[string]llm.Property{
			"x_column": str("Column name for the x-axis"),
			"y_column": str("Column name for the y-axis"),
		}, "x_column", "y_column")
	case OpDirectAnswer:
		def.Description = "Answer in plain text"
		def.Parameters = object(map[string]llm.Property{})
	}
	return def
}
