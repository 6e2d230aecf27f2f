package services

import (
	"errors"

	apperrors "folio/internal/errors"
	"folio/internal/valuation"
)

// MarketDataError maps price source failures to client-facing errors.
func MarketDataError(err error) error {
	switch {
	case errors.Is(err, valuation.ErrRateLimited):
		return apperrors.Wrap(apperrors.ErrRateLimited, err)
	case errors.Is(err, valuation.ErrMissingPrice):
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrDataUnavailable, "No price is available for the requested date"), err)
	default:
		return apperrors.Wrap(apperrors.ErrDataUnavailable, err)
	}
}

// valuationError maps engine failures to client-facing errors.
func valuationError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, valuation.ErrInvalidTimeframe):
		return apperrors.Wrap(apperrors.ErrInvalidTimeframe, err)
	case errors.Is(err, valuation.ErrInvalidCompareSymbol):
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, "Compare symbols must look like STOCK:<ticker> or PORTFOLIO:<id>"), err)
	case errors.Is(err, valuation.ErrOversold),
		errors.Is(err, valuation.ErrMissingBenchmarkPrice),
		errors.Is(err, valuation.ErrInvalidTransaction):
		return apperrors.Wrap(apperrors.ErrHoldingsIntegrity, err)
	case errors.Is(err, valuation.ErrRateLimited),
		errors.Is(err, valuation.ErrMissingPrice),
		errors.Is(err, valuation.ErrDataUnavailable):
		return MarketDataError(err)
	case errors.Is(err, valuation.ErrZeroBaseline):
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrDataUnavailable, "Series starts at zero and cannot be compared"), err)
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
