package server

import "github.com/sig-0/fxconvert/storage/types"

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type CurrenciesResponse struct {
	Results []types.CurrencyInfo `json:"results"`
}

type HistoryResponse struct {
	Results []types.ConversionRecord `json:"results"`
}

type FavoritesResponse struct {
	Results []types.Currency `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
