package market

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbeneye/leadsync/internal/config"
	"github.com/urbeneye/leadsync/pkg/graph"
	"github.com/urbeneye/leadsync/pkg/idealista"
)

// Snapshot runs one market snapshot pass over a set of areas.
type Snapshot struct {
	cfg       *config.Config
	graph     graph.Client
	idealista idealista.Client
	now       func() time.Time
}

// NewSnapshot wires a snapshot run from its external dependencies.
func NewSnapshot(cfg *config.Config, graphClient graph.Client, idealistaClient idealista.Client) *Snapshot {
	return &Snapshot{
		cfg:       cfg,
		graph:     graphClient,
		idealista: idealistaClient,
		now:       time.Now,
	}
}

// Run downloads the benchmark workbook once, then snapshots every area
// with bounded concurrency. A failed area is logged and skipped; the run
// only fails when no area succeeded.
func (s *Snapshot) Run(ctx context.Context, areas []Area) error {
	if len(areas) == 0 {
		return eris.New("market: no areas to snapshot")
	}

	benchData, err := s.graph.DownloadFile(ctx, s.cfg.Market.BenchmarkPath)
	if err != nil {
		return eris.Wrap(err, "market: download benchmark workbook")
	}
	bench, err := LoadBenchmark(benchData)
	if err != nil {
		return err
	}

	day := s.now().UTC().Format("2006-01-02")
	stamp := s.now().UTC().Format("20060102T150405")

	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Market.MaxConcurrent)
	for _, area := range areas {
		area := area
		g.Go(func() error {
			if err := s.snapshotArea(gctx, area, bench, day, stamp); err != nil {
				zap.L().Warn("market: area snapshot failed",
					zap.String("area", area.Name),
					zap.Error(err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if succeeded.Load() == 0 {
		return eris.New("market: every area snapshot failed")
	}
	zap.L().Info("market: snapshot run complete",
		zap.Int("areas", len(areas)),
		zap.Int64("succeeded", succeeded.Load()))
	return nil
}

// annotated is one listing joined with its benchmark comparison.
type annotated struct {
	listing  idealista.Listing
	refPrice float64
	diffPct  float64
}

func (s *Snapshot) snapshotArea(ctx context.Context, area Area, bench Benchmark, day, stamp string) error {
	listings, err := s.searchAll(ctx, area)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		zap.L().Info("market: no listings for area", zap.String("area", area.Name))
		return nil
	}

	refPrice, haveRef := bench.Lookup(area.Name)
	if !haveRef {
		zap.L().Warn("market: no benchmark price for area", zap.String("area", area.Name))
	}

	rows := annotate(listings, refPrice)
	workbook, err := buildWorkbook(area.Name, rows, haveRef)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return eris.Wrapf(err, "market: serialize workbook for %s", area.Name)
	}

	path := fmt.Sprintf("%s/%s/%s_%s.xlsx",
		strings.TrimRight(s.cfg.Market.DataFolder, "/"), day, fileSafeName(area.Name), stamp)
	if err := s.graph.UploadFile(ctx, path, buf.Bytes()); err != nil {
		return eris.Wrapf(err, "market: upload snapshot for %s", area.Name)
	}

	zap.L().Info("market: area snapshot uploaded",
		zap.String("area", area.Name),
		zap.Int("listings", len(listings)),
		zap.String("path", path))
	return nil
}

// searchAll pages through the search results for one area until the
// reported page count is exhausted.
func (s *Snapshot) searchAll(ctx context.Context, area Area) ([]idealista.Listing, error) {
	var listings []idealista.Listing
	page := 1
	for {
		resp, err := s.idealista.Search(ctx, idealista.SearchRequest{
			Center:   area.Center,
			Distance: s.cfg.Market.Distance,
			MaxItems: s.cfg.Market.MaxItems,
			Page:     page,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "market: search %s page %d", area.Name, page)
		}
		listings = append(listings, resp.ElementList...)
		if page >= resp.TotalPages || len(resp.ElementList) == 0 {
			return listings, nil
		}
		page++
	}
}

// annotate joins listings with the benchmark price and sorts them by
// percentage difference ascending, most underpriced first. With no
// benchmark the difference stays zero and order falls back to price per
// area.
func annotate(listings []idealista.Listing, refPrice float64) []annotated {
	rows := make([]annotated, 0, len(listings))
	for _, l := range listings {
		row := annotated{listing: l, refPrice: refPrice}
		if refPrice > 0 {
			row.diffPct = (l.PriceByArea - refPrice) / refPrice * 100
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].diffPct != rows[j].diffPct {
			return rows[i].diffPct < rows[j].diffPct
		}
		return rows[i].listing.PriceByArea < rows[j].listing.PriceByArea
	})
	return rows
}

var snapshotHeader = []string{
	"Código", "Dirección", "Barrio", "Precio", "Superficie", "€/m²",
	"Habitaciones", "Baños", "Exterior", "Ascensor", "Ref €/m²", "Dif %", "URL",
}

func buildWorkbook(areaName string, rows []annotated, haveRef bool) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetSafeName(areaName))
	if err != nil {
		return nil, eris.Wrapf(err, "market: add sheet for %s", areaName)
	}

	header := sheet.AddRow()
	for _, h := range snapshotHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		l := r.listing
		row := sheet.AddRow()
		row.AddCell().SetString(l.PropertyCode)
		row.AddCell().SetString(l.Address)
		row.AddCell().SetString(l.Neighborhood)
		row.AddCell().SetFloat(l.Price)
		row.AddCell().SetFloat(l.Size)
		row.AddCell().SetFloat(l.PriceByArea)
		row.AddCell().SetInt(l.Rooms)
		row.AddCell().SetInt(l.Bathrooms)
		row.AddCell().SetString(yesNo(l.Exterior))
		row.AddCell().SetString(yesNo(l.HasLift))
		if haveRef {
			row.AddCell().SetFloat(r.refPrice)
			row.AddCell().SetFloatWithFormat(r.diffPct, "0.00")
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(l.URL)
	}
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

// fileSafeName keeps area names usable as path segments.
func fileSafeName(name string) string {
	name = NormalizeName(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// Sheet names cap at 31 characters in the XLSX format.
func sheetSafeName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
