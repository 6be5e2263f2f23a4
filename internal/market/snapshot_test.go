package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/urbeneye/leadsync/internal/config"
	graphmocks "github.com/urbeneye/leadsync/pkg/graph/mocks"
	"github.com/urbeneye/leadsync/pkg/idealista"
	idealistamocks "github.com/urbeneye/leadsync/pkg/idealista/mocks"
)

func marketConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{
			BenchmarkPath: "/Datos/benchmark.xlsx",
			DataFolder:    "/Datos/Snapshots",
			MaxConcurrent: 2,
			Distance:      600,
			MaxItems:      50,
		},
	}
}

func fixedSnapshot(cfg *config.Config, g *graphmocks.MockClient, i *idealistamocks.MockClient) *Snapshot {
	s := NewSnapshot(cfg, g, i)
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return s
}

func TestSnapshotRun(t *testing.T) {
	t.Parallel()

	graphMock := graphmocks.NewMockClient(t)
	idealistaMock := idealistamocks.NewMockClient(t)

	bench := benchmarkBytes(t, [][2]any{{"Chamberí", 6000.0}})
	graphMock.On("DownloadFile", mock.Anything, "/Datos/benchmark.xlsx").Return(bench, nil).Once()

	listings := []idealista.Listing{
		{PropertyCode: "200", Address: "Calle B", PriceByArea: 6600, Price: 660000, Size: 100},
		{PropertyCode: "100", Address: "Calle A", PriceByArea: 5400, Price: 540000, Size: 100},
	}
	idealistaMock.On("Search", mock.Anything, idealista.SearchRequest{
		Center:   "40.4340,-3.7033",
		Distance: 600,
		MaxItems: 50,
		Page:     1,
	}).Return(&idealista.SearchResponse{ElementList: listings, Total: 2, TotalPages: 1}, nil).Once()

	var uploaded []byte
	graphMock.On("UploadFile", mock.Anything,
		"/Datos/Snapshots/2026-03-14/chamberi_20260314T093000.xlsx", mock.Anything).
		Run(func(args mock.Arguments) {
			uploaded = args.Get(2).([]byte)
		}).Return(nil).Once()

	s := fixedSnapshot(marketConfig(), graphMock, idealistaMock)
	err := s.Run(context.Background(), []Area{{Name: "Chamberí", Center: "40.4340,-3.7033"}})
	require.NoError(t, err)

	// The uploaded workbook is sorted by benchmark difference ascending:
	// the underpriced listing (-10%) comes before the overpriced one (+10%).
	f, err := xlsx.OpenBinary(uploaded)
	require.NoError(t, err)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "100", rows[1].Cells[0].String())
	assert.Equal(t, "200", rows[2].Cells[0].String())
}

func TestSnapshotRunPaginates(t *testing.T) {
	t.Parallel()

	graphMock := graphmocks.NewMockClient(t)
	idealistaMock := idealistamocks.NewMockClient(t)

	bench := benchmarkBytes(t, [][2]any{{"Centro", 5000.0}})
	graphMock.On("DownloadFile", mock.Anything, mock.Anything).Return(bench, nil).Once()

	page1 := &idealista.SearchResponse{
		ElementList: []idealista.Listing{{PropertyCode: "1", PriceByArea: 5100}},
		TotalPages:  2,
	}
	page2 := &idealista.SearchResponse{
		ElementList: []idealista.Listing{{PropertyCode: "2", PriceByArea: 4900}},
		TotalPages:  2,
	}
	idealistaMock.On("Search", mock.Anything, mock.MatchedBy(func(req idealista.SearchRequest) bool {
		return req.Page == 1
	})).Return(page1, nil).Once()
	idealistaMock.On("Search", mock.Anything, mock.MatchedBy(func(req idealista.SearchRequest) bool {
		return req.Page == 2
	})).Return(page2, nil).Once()

	var uploaded []byte
	graphMock.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			uploaded = args.Get(2).([]byte)
		}).Return(nil).Once()

	s := fixedSnapshot(marketConfig(), graphMock, idealistaMock)
	err := s.Run(context.Background(), []Area{{Name: "Centro", Center: "40.41,-3.70"}})
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(uploaded)
	require.NoError(t, err)
	assert.Len(t, f.Sheets[0].Rows, 3) // header + both pages
}

func TestSnapshotRunAreaFailureIsolated(t *testing.T) {
	t.Parallel()

	graphMock := graphmocks.NewMockClient(t)
	idealistaMock := idealistamocks.NewMockClient(t)

	bench := benchmarkBytes(t, [][2]any{{"Centro", 5000.0}})
	graphMock.On("DownloadFile", mock.Anything, mock.Anything).Return(bench, nil).Once()

	idealistaMock.On("Search", mock.Anything, mock.MatchedBy(func(req idealista.SearchRequest) bool {
		return req.Center == "1,1"
	})).Return(nil, errors.New("429 too many requests")).Once()
	idealistaMock.On("Search", mock.Anything, mock.MatchedBy(func(req idealista.SearchRequest) bool {
		return req.Center == "2,2"
	})).Return(&idealista.SearchResponse{
		ElementList: []idealista.Listing{{PropertyCode: "9", PriceByArea: 4800}},
		TotalPages:  1,
	}, nil).Once()

	graphMock.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	s := fixedSnapshot(marketConfig(), graphMock, idealistaMock)
	err := s.Run(context.Background(), []Area{
		{Name: "Fails", Center: "1,1"},
		{Name: "Centro", Center: "2,2"},
	})
	require.NoError(t, err)
}

func TestSnapshotRunAllAreasFail(t *testing.T) {
	t.Parallel()

	graphMock := graphmocks.NewMockClient(t)
	idealistaMock := idealistamocks.NewMockClient(t)

	bench := benchmarkBytes(t, [][2]any{{"Centro", 5000.0}})
	graphMock.On("DownloadFile", mock.Anything, mock.Anything).Return(bench, nil).Once()

	idealistaMock.On("Search", mock.Anything, mock.Anything).
		Return(nil, errors.New("503 unavailable")).Twice()

	s := fixedSnapshot(marketConfig(), graphMock, idealistaMock)
	err := s.Run(context.Background(), []Area{
		{Name: "A", Center: "1,1"},
		{Name: "B", Center: "2,2"},
	})
	require.Error(t, err)
}

func TestSnapshotRunBenchmarkDownloadFatal(t *testing.T) {
	t.Parallel()

	graphMock := graphmocks.NewMockClient(t)
	idealistaMock := idealistamocks.NewMockClient(t)

	graphMock.On("DownloadFile", mock.Anything, mock.Anything).
		Return(nil, errors.New("404 not found")).Once()

	s := fixedSnapshot(marketConfig(), graphMock, idealistaMock)
	err := s.Run(context.Background(), []Area{{Name: "A", Center: "1,1"}})
	require.Error(t, err)
}

func TestAnnotateSort(t *testing.T) {
	t.Parallel()

	rows := annotate([]idealista.Listing{
		{PropertyCode: "hi", PriceByArea: 5500},
		{PropertyCode: "lo", PriceByArea: 4500},
		{PropertyCode: "mid", PriceByArea: 5000},
	}, 5000)

	require.Len(t, rows, 3)
	assert.Equal(t, "lo", rows[0].listing.PropertyCode)
	assert.Equal(t, "mid", rows[1].listing.PropertyCode)
	assert.Equal(t, "hi", rows[2].listing.PropertyCode)
	assert.InDelta(t, -10.0, rows[0].diffPct, 0.001)
	assert.InDelta(t, 10.0, rows[2].diffPct, 0.001)
}
