package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/marketdata"
	"folio/internal/models"
)

const (
	searchTickerLimit    = 5
	searchPortfolioLimit = 10
)

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchService matches a query against market symbols and the user's
// portfolio names.
type searchService struct {
	db      *gorm.DB
	symbols SymbolSearcher
}

// NewSearchService creates a new SearchServicer.
func NewSearchService(db *gorm.DB, symbols SymbolSearcher) SearchServicer {
	return &searchService{db: db, symbols: symbols}
}

// Search returns up to five equities and ten of the user's portfolios whose
// name contains query, case-insensitively.
func (s *searchService) Search(ctx context.Context, userID, query string) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Missing query parameter")
	}

	tickers, err := s.symbols.SearchSymbols(ctx, query, searchTickerLimit)
	if err != nil {
		return nil, MarketDataError(err)
	}

	var portfolios []models.Portfolio
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	if err := s.db.Where("user_id = ? AND LOWER(name) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("name ASC, id ASC").
		Limit(searchPortfolioLimit).
		Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	results := &SearchResults{
		TickerResults:    tickers,
		PortfolioResults: make([]PortfolioMatch, 0, len(portfolios)),
	}
	if results.TickerResults == nil {
		results.TickerResults = []marketdata.SymbolMatch{}
	}
	for _, p := range portfolios {
		results.PortfolioResults = append(results.PortfolioResults, PortfolioMatch{ID: p.ID, Name: p.Name})
	}
	return results, nil
}
