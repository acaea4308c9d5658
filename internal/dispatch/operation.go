package dispatch

import "strings"

// Operation is the closed set of things one chat turn can do.
type Operation string

const (
	OpAggregate    Operation = "aggregate"
	OpAddColumn    Operation = "add_column"
	OpDeleteColumn Operation = "delete_column"
	OpBuildChart   Operation = "build_chart"
	OpAnalyzeTrend Operation = "analyze_trend"
	OpSummarize    Operation = "summarize"
	OpDirectAnswer Operation = "direct_answer"
	OpSumRange     Operation = "sum_range"
	OpAverageRange Operation = "average_range"
	OpCreatePivot  Operation = "create_pivot"
	OpFormatCells  Operation = "format_cells"
	OpForecast     Operation = "forecast"
	OpSuggestChart Operation = "suggest_chart"
)

// ToolOperations lists the operations offered to the model as tools.
// OpDirectAnswer is not a tool: it is what a plain-text reply becomes.
func ToolOperations() []Operation {
	return []Operation{
		OpAggregate, OpAddColumn, OpDeleteColumn, OpBuildChart, OpAnalyzeTrend,
		OpSummarize, OpSumRange, OpAverageRange, OpCreatePivot, OpFormatCells,
		OpForecast, OpSuggestChart,
	}
}

// toolAliases maps legacy tool names onto operations.
var toolAliases = map[string]Operation{
	"generate_chart": OpBuildChart,
	"create_chart":   OpBuildChart,
	"get_insights":   OpSummarize,
	"analyze_data":   OpSummarize,
	"trend":          OpAnalyzeTrend,
}

// ParseOperation resolves a tool name. Only tool operations and their aliases
// resolve; direct_answer is never a valid tool.
func ParseOperation(name string) (Operation, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if op, ok := toolAliases[name]; ok {
		return op, true
	}
	for _, op := range ToolOperations() {
		if string(op) == name {
			return op, true
		}
	}
	return "", false
}

// MutatesTable reports whether a successful run of op yields a new table.
func (op Operation) MutatesTable() bool {
	switch op {
	case OpAddColumn, OpDeleteColumn:
		return true
	case OpAggregate, OpBuildChart, OpAnalyzeTrend, OpSummarize, OpDirectAnswer,
		OpSumRange, OpAverageRange, OpCreatePivot, OpFormatCells, OpForecast, OpSuggestChart:
		return false
	default:
		return false
	}
}
