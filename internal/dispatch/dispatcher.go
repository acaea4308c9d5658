// Package dispatch turns a chat message into at most one spreadsheet
// operation. The model picks the operation through tool calling; the
// dispatcher validates the arguments and runs the matching library function.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetgenie/internal/chart"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/llm"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"

	"go.opentelemetry.io/otel/codes"
)

// Dispatcher asks the model which operation to run and runs it.
type Dispatcher struct {
	client      llm.Client
	context     ContextConfig
	temperature float64
	maxTokens   int
	metrics     *observability.MetricsCollector
	tracer      *observability.TracerProvider
	logger      logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithContextConfig sets the table context budget.
func WithContextConfig(cfg ContextConfig) Option {
	return func(d *Dispatcher) { d.context = cfg }
}

// WithSampling sets the completion temperature and token limit.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(d *Dispatcher) {
		d.temperature = temperature
		d.maxTokens = maxTokens
	}
}

// WithMetrics records tool executions.
func WithMetrics(m *observability.MetricsCollector) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracer traces dispatches and tool executions.
func WithTracer(tp *observability.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracer = tp }
}

// WithLogger replaces the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrNop(logger) }
}

// New builds a dispatcher around client.
func New(client llm.Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:      client,
		context:     DefaultContextConfig(),
		temperature: 0.7,
		maxTokens:   1000,
		logger:      logging.NewComponentLogger("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request builds the completion request for message against t.
func (d *Dispatcher) Request(message string, t *sheet.Table) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt(t, d.context)},
			{Role: llm.RoleUser, Content: message},
		},
		Tools:       Tools(),
		Temperature: d.temperature,
		MaxTokens:   d.maxTokens,
	}
}

// Dispatch sends message and the table context to the model and runs the
// operation it picks. A nil table means the built-in sample. Model failures
// are returned as UpstreamProviderError; operation failures are reported in
// the result with Success false and never as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, t *sheet.Table) (*Result, error) {
	if t == nil {
		t = sheet.Sample()
	}
	ctx, span := d.tracer.StartSpan(ctx, observability.SpanDispatch, observability.TableAttrs(t.Rows(), t.Columns())...)
	defer span.End()
	logger := logging.FromContext(ctx, d.logger)

	reply, err := d.client.Complete(ctx, d.Request(message, t))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("LLM completion failed: %v", err)
		if sgerrors.CodeOf(err) == sgerrors.CodeUpstreamProvider {
			return nil, err
		}
		return nil, sgerrors.Wrap(sgerrors.CodeUpstreamProvider, err, "%s", sgerrors.FormatForUser(err))
	}

	switch reply.Kind {
	case llm.ReplyText:
		logger.Debug("Model answered in text (%d chars)", len(reply.Text))
		return &Result{Operation: OpDirectAnswer, Success: true, Explanation: strings.TrimSpace(reply.Text)}, nil
	case llm.ReplyToolCall:
		res := d.Execute(ctx, *reply.Call, t)
		res.Message = strings.TrimSpace(reply.Text)
		if len(reply.Extra) > 0 {
			ignored := make([]string, len(reply.Extra))
			for i, call := range reply.Extra {
				ignored[i] = call.Name
			}
			res.detail("ignored_tool_calls", ignored)
			logger.Info("Model requested %d tool calls; ran %s, ignored %s",
				len(reply.Extra)+1, reply.Call.Name, strings.Join(ignored, ", "))
		}
		span.SetAttributes(observability.OperationAttrs(string(res.Operation))...)
		return res, nil
	default:
		return nil, sgerrors.New(sgerrors.CodeUpstreamProvider, "model returned an unrecognized reply kind %s", reply.Kind)
	}
}

// Execute validates and runs a single tool call against t. It never returns
// nil and never modifies t.
func (d *Dispatcher) Execute(ctx context.Context, call llm.ToolCall, t *sheet.Table) *Result {
	if t == nil {
		t = sheet.Sample()
	}
	res := &Result{Tool: call.Name}
	op, ok := ParseOperation(call.Name)
	if !ok {
		d.metrics.RecordToolExecution(ctx, "unknown", "error", 0)
		return res.fail(sgerrors.New(sgerrors.CodeUnknownOperation, "Function %s is not supported", call.Name))
	}
	res.Operation = op

	args, repaired, err := decodeArguments(call)
	if err != nil {
		d.metrics.RecordToolExecution(ctx, string(op), "malformed", 0)
		return res.fail(err)
	}
	res.Arguments = args
	if repaired {
		res.detail("repaired_arguments", true)
	}

	ctx, span := d.tracer.StartSpan(ctx, observability.SpanOperation, observability.OperationAttrs(string(op))...)
	defer span.End()

	started := time.Now()
	err = d.run(op, args, t, res)
	duration := time.Since(started)

	status := "success"
	if err != nil {
		status = "error"
		if sgerrors.CodeOf(err) == sgerrors.CodeMalformedToolCall {
			status = "malformed"
		}
		res.fail(err)
		span.SetStatus(codes.Error, err.Error())
		logging.FromContext(ctx, d.logger).Info("Operation %s failed: %v", op, err)
	} else {
		res.Success = true
	}
	d.metrics.RecordToolExecution(ctx, string(op), status, duration)
	span.SetAttributes(observability.StatusAttrs(status)...)
	return res
}

// run decodes the arguments of op, then executes it. Decoding happens before
// any library call so malformed calls never touch the table.
func (d *Dispatcher) run(op Operation, a arguments, t *sheet.Table, res *Result) error {
	switch op {
	case OpAggregate:
		column, err := a.str("column")
		if err != nil {
			return err
		}
		opName, err := a.optStr("sum", "op", "operation", "aggfunc")
		if err != nil {
			return err
		}
		aggOp, err := spreadsheet.ParseAggregateOp(opName)
		if err != nil {
			return malformed("argument \"op\" must be one of sum, average, min, max, count; got %q", opName)
		}
		out, err := spreadsheet.Aggregate(t, column, aggOp)
		if err != nil {
			return err
		}
		res.Explanation = out.Describe()
		res.Formula = out.Formula
		res.Value = float(out.Value)
		res.detail("column", out.Column)
		res.detail("rows", out.Rows)
		res.detail("skipped", out.Skipped)
		return nil

	case OpAddColumn:
		name, err := a.str("name", "column_name", "new_column")
		if err != nil {
			return err
		}
		expr, err := columnExpr(a, t)
		if err != nil {
			return err
		}
		change, err := spreadsheet.AddColumn(t, name, expr)
		if err != nil {
			return err
		}
		verb := "Added"
		if change.Replaced {
			verb = "Replaced"
		}
		res.Explanation = fmt.Sprintf("%s column '%s' derived from %s (%s).", verb, change.Column, change.Source, change.Formula)
		res.Formula = change.Formula
		res.Table = change.Table
		res.detail("computed", change.Computed)
		res.detail("replaced", change.Replaced)
		return nil

	case OpDeleteColumn:
		column, err := a.str("column", "name")
		if err != nil {
			return err
		}
		change, err := spreadsheet.DeleteColumn(t, column)
		if err != nil {
			return err
		}
		res.Explanation = fmt.Sprintf("Deleted column '%s'.", change.Column)
		res.Table = change.Table
		return nil

	case OpBuildChart:
		xKey, err := a.str("x_key", "x_column")
		if err != nil {
			return err
		}
		yKeys, err := a.strs("y_keys", "y_column", "y_columns")
		if err != nil {
			return err
		}
		kindName, err := a.optStr(string(chart.KindBar), "chart_type", "type")
		if err != nil {
			return err
		}
		title, err := a.optStr("", "title")
		if err != nil {
			return err
		}
		palette, err := a.optStr("default", "palette")
		if err != nil {
			return err
		}
		if _, ok := chart.Palettes[palette]; !ok {
			return malformed("argument \"palette\" must be one of %s; got %q", strings.Join(chart.PaletteNames(), ", "), palette)
		}
		opts := chart.DefaultOptions(len(yKeys))
		opts.Palette = palette
		spec, err := spreadsheet.BuildChart(t, chart.ParseKind(kindName), xKey, yKeys, opts, title)
		if err != nil {
			return err
		}
		widget := chart.Render(*spec)
		res.Chart = spec
		res.Widget = &widget
		res.Explanation = fmt.Sprintf("Created a %s chart of %s by %s.", spec.Kind, strings.Join(spec.YKeys, ", "), spec.XKey)
		return nil

	case OpAnalyzeTrend:
		column, err := a.str("column")
		if err != nil {
			return err
		}
		trend, err := spreadsheet.SummarizeTrend(t, column)
		if err != nil {
			return err
		}
		res.Explanation = trend.Describe()
		res.Value = float(trend.PercentChange)
		res.detail("trend", trend)
		return nil

	case OpSummarize:
		insights := spreadsheet.Analyze(t)
		res.Insights = insights
		res.Explanation = spreadsheet.Report(t)
		return nil

	case OpSumRange, OpAverageRange:
		spec, err := a.str("range_spec", "range")
		if err != nil {
			return err
		}
		var out *spreadsheet.RangeResult
		if op == OpSumRange {
			out, err = spreadsheet.SumRange(t, spec)
		} else {
			out, err = spreadsheet.AverageRange(t, spec)
		}
		if err != nil {
			return err
		}
		res.Explanation = out.Describe()
		res.Formula = out.Formula
		res.Value = float(out.Value)
		res.detail("cells", out.Cells)
		res.detail("skipped", out.Skipped)
		return nil

	case OpCreatePivot:
		rows, err := a.strs("rows", "index")
		if err != nil {
			return err
		}
		values, err := a.strs("values")
		if err != nil {
			return err
		}
		aggName, err := a.optStr("sum", "aggfunc", "op")
		if err != nil {
			return err
		}
		agg, err := spreadsheet.ParseAggregateOp(aggName)
		if err != nil {
			return malformed("argument \"aggfunc\" must be one of sum, mean, count, max, min; got %q", aggName)
		}
		pivot, err := spreadsheet.Pivot(t, rows, values, agg)
		if err != nil {
			return err
		}
		res.Pivot = pivot
		res.Explanation = fmt.Sprintf("Created a pivot table of %s by %s using %s (%d groups).",
			strings.Join(pivot.Values, ", "), strings.Join(pivot.Rows, ", "), pivot.AggFunc, len(pivot.Groups))
		return nil

	case OpFormatCells:
		spec, err := a.str("range_spec", "range")
		if err != nil {
			return err
		}
		formatName, err := a.str("format_type")
		if err != nil {
			return err
		}
		formatType, ok := parseFormatType(formatName)
		if !ok {
			return malformed("argument \"format_type\" must be one of currency, percentage, date, bold, color; got %q", formatName)
		}
		value, err := a.optStr("", "format_value")
		if err != nil {
			return err
		}
		formatting, err := spreadsheet.FormatCells(t, spec, formatType, value)
		if err != nil {
			return err
		}
		res.Formatting = formatting
		res.Explanation = fmt.Sprintf("Applied %s formatting to %s.", formatting.FormatType, formatting.Range)
		return nil

	case OpForecast:
		column, err := a.str("column")
		if err != nil {
			return err
		}
		periods, err := a.optInt(3, "periods")
		if err != nil {
			return err
		}
		forecast, err := spreadsheet.Forecast(t, column, periods)
		if err != nil {
			return err
		}
		values := make([]string, len(forecast.Forecasts))
		for i, v := range forecast.Forecasts {
			values[i] = sheet.FormatNumber(v)
		}
		res.Explanation = fmt.Sprintf("Forecast for %s over the next %d periods: %s.",
			forecast.Column, len(values), strings.Join(values, ", "))
		res.detail("forecast", forecast)
		return nil

	case OpSuggestChart:
		x, err := a.str("x_column", "x_key")
		if err != nil {
			return err
		}
		y, err := a.str("y_column", "y_key")
		if err != nil {
			return err
		}
		suggestion, err := spreadsheet.SuggestChart(t, x, y)
		if err != nil {
			return err
		}
		picks := make([]string, len(suggestion.Recommended))
		for i, rec := range suggestion.Recommended {
			picks[i] = fmt.Sprintf("%s (%s)", rec.Kind, rec.Confidence)
		}
		res.Explanation = fmt.Sprintf("Recommended charts for %s vs %s: %s.", suggestion.X, suggestion.Y, strings.Join(picks, ", "))
		res.detail("suggestion", suggestion)
		return nil

	case OpDirectAnswer:
		return sgerrors.New(sgerrors.CodeUnknownOperation, "%s is not a callable operation", op)

	default:
		return sgerrors.New(sgerrors.CodeUnknownOperation, "Function %s is not supported", op)
	}
}

// columnExpr reads either source/transform/operand or a free-form expression.
func columnExpr(a arguments, t *sheet.Table) (spreadsheet.ColumnExpr, error) {
	source, err := a.optStr("", "source", "source_column", "base_column")
	if err != nil {
		return spreadsheet.ColumnExpr{}, err
	}
	expression, err := a.optStr("", "expression", "formula", "description")
	if err != nil {
		return spreadsheet.ColumnExpr{}, err
	}
	if source == "" {
		if expression == "" {
			return spreadsheet.ColumnExpr{}, malformed("add_column needs either \"source\" or \"expression\"")
		}
		return spreadsheet.ParseColumnExpr(t, expression)
	}

	transformName, err := a.optStr(string(spreadsheet.TransformCopy), "transform", "operation")
	if err != nil {
		return spreadsheet.ColumnExpr{}, err
	}
	transform, err := spreadsheet.ParseTransform(transformName)
	if err != nil {
		return spreadsheet.ColumnExpr{}, malformed("argument \"transform\" is not a known transform: %q", transformName)
	}
	operand, err := a.optNum(0, "operand", "value", "percentage")
	if err != nil {
		return spreadsheet.ColumnExpr{}, err
	}
	return spreadsheet.ColumnExpr{Source: source, Transform: transform, Operand: operand}, nil
}

func parseFormatType(name string) (spreadsheet.FormatType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ft := range spreadsheet.FormatTypes() {
		if string(ft) == name {
			return ft, true
		}
	}
	return "", false
}
