package expense

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/logger"
)

// Parser turns free-form chat messages into expense records. It is safe for
// concurrent use; each call owns its intermediate values.
type Parser struct {
	interpreter Interpreter
	loc         *time.Location
}

// NewParser returns a parser. A nil interpreter means every message goes
// through the rule-based fallback; a nil location means Asia/Bangkok.
func NewParser(interpreter Interpreter, loc *time.Location) *Parser {
	if loc == nil {
		loc = LoadLocation(DefaultLocation)
	}
	return &Parser{interpreter: interpreter, loc: loc}
}

// Location returns the zone transaction dates are stamped in.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse interprets raw. The only errors it returns are ErrUnparsable and the
// caller's own context error.
func (p *Parser) Parse(ctx context.Context, raw string, receivedAt time.Time) (*ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	raw = strings.TrimSpace(raw)

	facts := Extract(raw)
	log.Debug().
		Str("message", raw).
		Str("formula", facts.Formula).
		Str("text_sans_formula", facts.TextSansFormula).
		Interface("quantity", facts.Quantity).
		Str("unit", facts.Unit).
		Floats64("numbers", facts.Numbers).
		Msg("Lexical pre-parse")

	fallback, err := Fallback(raw)
	if err != nil {
		return nil, ErrUnparsable
	}

	candidate, source := fallback, InterpretationFallback
	if p.interpreter != nil {
		sem, err := p.interpreter.Interpret(ctx, raw, facts)
		switch {
		case errors.Is(err, ErrSemanticUnavailable):
			log.Debug().Msg("Semantic interpreter unavailable, using fallback")
		case err != nil:
			log.Warn().Err(err).Str("message", raw).Msg("Semantic interpretation failed, using fallback")
		default:
			candidate, source = sem, InterpretationSemantic
		}
	}

	rec, fixes := reconcile(facts, candidate)
	logFixes(log, source, fixes)

	if source == InterpretationSemantic && !positive(rec.Amount) {
		log.Warn().Str("message", raw).Msg("Semantic result has no positive amount, using fallback")
		rec, fixes = reconcile(facts, fallback)
		source = InterpretationFallback
		logFixes(log, source, fixes)
	}

	if !positive(rec.Amount) {
		return nil, ErrUnparsable
	}

	return p.finalize(rec, source, receivedAt), nil
}

func (p *Parser) finalize(c CandidateRecord, source Interpretation, receivedAt time.Time) *ExpenseRecord {
	category := CategoryByID(ResolveCategory(c.Category))

	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = DefaultDescription
	}

	local := receivedAt.In(p.loc)
	y, m, d := local.Date()

	return &ExpenseRecord{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Amount:       *c.Amount,
		Description:  description,
		Quantity:     c.Quantity,
		Unit:         c.Unit,
		UnitPrice:    c.UnitPrice,
		Note:         c.Note,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, p.loc),
		Source:       source,
	}
}

func logFixes(log zerolog.Logger, source Interpretation, fixes []string) {
	if len(fixes) == 0 {
		return
	}
	log.Warn().Str("source", string(source)).Strs("fixes", fixes).Msg("Reconciled candidate record")
}

// positive reports whether v is still above zero once rounded to satang.
func positive(v *float64) bool {
	return v != nil && math.Round(*v*100) > 0
}

// LoadLocation loads a time zone by name. When the zone database is missing
// it falls back to a fixed UTC+7 zone.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}
