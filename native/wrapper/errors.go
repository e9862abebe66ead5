package wrapper

import "errors"

var (
	errNilState        = errors.New("wrapper engine: state not configured")
	errNilQuerier      = errors.New("wrapper engine: querier not configured")
	errNotInstantiated = errors.New("wrapper engine: wrapper not instantiated")

	// ErrAlreadyInstantiated guards against re-running instantiation over
	// existing state.
	ErrAlreadyInstantiated = errors.New("wrapper engine: already instantiated")
	// ErrUnauthorized is returned when a restricted operation is called by
	// anyone other than the configured hub.
	ErrUnauthorized = errors.New("wrapper engine: unauthorized")
	// ErrSlashingDetected marks a wrapper exchange rate below one: the
	// backing no longer covers the supply and nothing may be extracted.
	ErrSlashingDetected = errors.New("wrapper engine: no rewards to decompound")
	// ErrRatioAccountingUnderflow is returned when past extractions already
	// exceed the allowance accrued over the tracked period.
	ErrRatioAccountingUnderflow = errors.New("wrapper engine: error subtracting the total ratio to the current max_decompound ratio")
	// ErrTooSoon is returned by a capped decompound in the same block as (or
	// before) the previous one.
	ErrTooSoon = errors.New("wrapper engine: can't decompound too often")
	// ErrArithmetic covers overflow, underflow and division by zero, as well
	// as amounts that do not fit in 128 bits.
	ErrArithmetic = errors.New("wrapper engine: arithmetic error")
	// ErrAdapterQuery wraps failures of the LSD hub adapter queries.
	ErrAdapterQuery = errors.New("wrapper engine: lsd hub query failed")
	// ErrInvalidRatio is returned for negative decompound ratios.
	ErrInvalidRatio = errors.New("wrapper engine: invalid max decompound ratio")
)
