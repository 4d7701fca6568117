package server

import (
	"context"

	"github.com/sig-0/fxconvert/storage/types"
)

type latestDelegate func(context.Context) *types.RatesResponse

type mockRateService struct {
	latestFn latestDelegate
}

func (m *mockRateService) Latest(ctx context.Context) *types.RatesResponse {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}

	return &types.RatesResponse{}
}

type (
	appendDelegate func(context.Context, types.ConversionRecord)
	listDelegate   func(context.Context) []types.ConversionRecord
	clearDelegate  func(context.Context)
)

type mockHistory struct {
	appendFn appendDelegate
	listFn   listDelegate
	clearFn  clearDelegate
}

func (m *mockHistory) Append(ctx context.Context, record types.ConversionRecord) {
	if m.appendFn != nil {
		m.appendFn(ctx, record)
	}
}

func (m *mockHistory) List(ctx context.Context) []types.ConversionRecord {
	if m.listFn != nil {
		return m.listFn(ctx)
	}

	return []types.ConversionRecord{}
}

func (m *mockHistory) Clear(ctx context.Context) {
	if m.clearFn != nil {
		m.clearFn(ctx)
	}
}
