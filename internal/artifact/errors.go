package artifact

import "errors"

var (
	// ErrArtifactMissing means the generator has not produced the report yet.
	ErrArtifactMissing = errors.New("report artifact not found")
	// ErrMalformedArtifact covers missing sheets and sheets that cannot be
	// normalized into a dated numeric series.
	ErrMalformedArtifact = errors.New("malformed report artifact")
)

// Sheet names shared by writer and reader.
const (
	SheetValue         = "Portfolio Value"
	SheetReturns       = "Daily Returns"
	SheetDrawdown      = "Drawdown"
	SheetRollingSharpe = "Rolling Sharpe"
	SheetPrices        = "Price Data"
	SheetSummary       = "Summary Metrics"

	DateColumn   = "Date"
	MetricColumn = "Metric"
	ValueColumn  = "Value"
)
