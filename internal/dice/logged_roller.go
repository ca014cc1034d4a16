package dice

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, mode, dice values,
// flat total, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr under mode and logs the result at debug level.
//
// Precondition: expr must come from Parse.
func (r *Roller) Roll(expr Expression, mode AdvantageMode) RollResult {
	return r.roll(expr, mode, r.logger)
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a *ParseError.
func (r *Roller) RollExpr(expr string, mode AdvantageMode) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		r.logger.Debug("dice parse failed", zap.String("expression", expr), zap.Error(err))
		return RollResult{}, err
	}
	return r.Roll(e, mode), nil
}

// Batch is the outcome of rolling one expression several times.
type Batch struct {
	ID      string // random UUID correlating the batch's log entries
	Mode    AdvantageMode
	Results []RollResult
}

// Totals returns the total of every roll in order.
func (b Batch) Totals() []int {
	totals := make([]int, len(b.Results))
	for i, res := range b.Results {
		totals[i] = res.Total
	}
	return totals
}

// Stats aggregates the batch totals; ok is false for an empty batch.
func (b Batch) Stats() (Stats, bool) {
	return ComputeStats(b.Totals())
}

// RollBatch rolls expr n times under mode. Each roll is logged with the batch
// ID, followed by one info entry summarizing the batch.
//
// Precondition: expr must come from Parse; n >= 0.
// Postcondition: len(batch.Results) == n.
func (r *Roller) RollBatch(expr Expression, mode AdvantageMode, n int) Batch {
	b := Batch{
		ID:      uuid.New().String(),
		Mode:    mode,
		Results: make([]RollResult, 0, n),
	}
	logger := r.logger.With(zap.String("batch", b.ID))
	for i := 0; i < n; i++ {
		b.Results = append(b.Results, r.roll(expr, mode, logger))
	}

	if st, ok := b.Stats(); ok {
		logger.Info("dice batch complete",
			zap.String("expression", expr.String()),
			zap.Stringer("mode", mode),
			zap.Int("count", st.Count),
			zap.Int("min", st.Min),
			zap.Int("max", st.Max),
			zap.Float64("mean", st.Mean),
		)
	}
	return b
}

func (r *Roller) roll(expr Expression, mode AdvantageMode, logger *zap.Logger) RollResult {
	result := Roll(expr, mode, r.src)
	if ce := logger.Check(zap.DebugLevel, "dice roll"); ce != nil {
		terms := make([]string, len(result.Details))
		for i, d := range result.Details {
			terms[i] = d.String()
		}
		ce.Write(
			zap.String("expression", result.Expression),
			zap.Stringer("mode", mode),
			zap.Strings("terms", terms),
			zap.Int("flat", result.FlatTotal),
			zap.Int("total", result.Total),
		)
	}
	return result
}
