package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/fxconvert/convert"
	"github.com/sig-0/fxconvert/favorites"
	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/storage/types"
)

const ratesCacheControl = "public, s-maxage=3600, stale-while-revalidate=7200"

var (
	errUnableToFetchSources = errors.New("unable to fetch sources")
	errRatesUnavailable     = errors.New("exchange rates unavailable")
	errRateUnavailable      = errors.New("rate unavailable for currency pair")
	errUnsupportedCurrency  = errors.New("unsupported currency")
	errInvalidFavorite      = errors.New("invalid currency code (must be 3 uppercase letters)")
)

func (s *Server) Rates(w http.ResponseWriter, r *http.Request) {
	resp := s.rates.Latest(r.Context())
	if !resp.Success {
		writeJSON(w, http.StatusInternalServerError, resp)

		return
	}

	w.Header().Set("Cache-Control", ratesCacheControl)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var (
		amountParam = r.URL.Query().Get("amount")
		fromParam   = r.URL.Query().Get("from")
		toParam     = r.URL.Query().Get("to")
	)

	// Validate the amount
	amount, validation := convert.ParseAmount(amountParam)
	if !validation.IsValid {
		writeJSON(w, http.StatusBadRequest, validation)

		return
	}

	// Parse the currency pair (defaults to USD -> EUR)
	from, err := parseSupportedCurrency(fromParam, currencies.USD)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := parseSupportedCurrency(toParam, currencies.EUR)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	resp := s.rates.Latest(r.Context())
	if !resp.Success || resp.Data == nil {
		writeError(w, http.StatusServiceUnavailable, errRatesUnavailable)

		return
	}

	fromRate, fromOK := resp.Data.Rate(from)
	toRate, toOK := resp.Data.Rate(to)

	if !fromOK || !toOK || fromRate == 0 || toRate == 0 {
		writeError(
			w,
			http.StatusServiceUnavailable,
			fmt.Errorf("%w: %s/%s", errRateUnavailable, from, to),
		)

		return
	}

	record := types.ConversionRecord{
		From:      from,
		To:        to,
		Amount:    amount,
		Result:    convert.Convert(amount, fromRate, toRate),
		Rate:      convert.CrossRate(fromRate, toRate),
		Timestamp: types.NowMillis(),
	}

	s.history.Append(r.Context(), record)

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	resp := &HistoryResponse{
		Results: s.history.List(r.Context()),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Favorites(w http.ResponseWriter, _ *http.Request) {
	resp := &FavoritesResponse{
		Results: s.favorites.List(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) AddFavorite(w http.ResponseWriter, r *http.Request) {
	code := types.Currency(chi.URLParam(r, "code"))

	// The store drops invalid codes silently, so they are rejected here
	if !favorites.IsValid(code) {
		writeError(w, http.StatusBadRequest, errInvalidFavorite)

		return
	}

	s.favorites.Add(r.Context(), code)

	s.Favorites(w, r)
}

func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	code := types.Currency(chi.URLParam(r, "code"))

	s.favorites.Remove(r.Context(), code)

	s.Favorites(w, r)
}

func (s *Server) Currencies(w http.ResponseWriter, _ *http.Request) {
	resp := &CurrenciesResponse{
		Results: currencies.All(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeJSON(w, http.StatusOK, &SourcesResponse{Results: []types.Source{}})

		return
	}

	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	if items == nil {
		items = []types.Source{}
	}

	resp := &SourcesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseSupportedCurrency parses the currency code, falling back to the
// given default when empty
func parseSupportedCurrency(raw string, fallback types.Currency) (types.Currency, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	code, err := parseCurrencySymbol(raw)
	if err != nil {
		return "", err
	}

	if !currencies.IsSupported(code) {
		return "", fmt.Errorf("%w: %s", errUnsupportedCurrency, code)
	}

	return code, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) != 3 {
		return "", errors.New("invalid currency (must be 3 letters)")
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errors.New("invalid currency (must be A-Z)")
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
