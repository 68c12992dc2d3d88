package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trainingpulse/trainingpulse/agent/internal/config"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Loader reads one dataset slot from its Source and decodes it.
type Loader struct {
	kind   string
	format string
	sheet  string
	src    Source
	now    func() time.Time // injectable for deterministic tests
}

// NewLoader builds a Loader for the dataset kind (participations or plan).
func NewLoader(kind string, cfg config.Source) (*Loader, error) {
	src, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}
	return &Loader{
		kind:   kind,
		format: cfg.EffectiveFormat(),
		sheet:  cfg.Sheet,
		src:    src,
		now:    time.Now,
	}, nil
}

// Kind returns the dataset slot this loader fills.
func (l *Loader) Kind() string { return l.kind }

// Source returns the underlying source.
func (l *Loader) Source() Source { return l.src }

// Load fetches and decodes the dataset. The result is a new Dataset; nothing
// previously returned is modified.
func (l *Loader) Load(ctx context.Context) (*types.Dataset, error) {
	data, err := l.src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", l.kind, err)
	}

	ds, err := Decode(data, l.format, l.sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", l.kind, err)
	}
	ds.Kind = l.kind
	ds.Source = l.src.Location()
	ds.LoadedAt = l.now().UTC()
	return ds, nil
}

// Decode parses raw bytes in the given format (csv, csv-quoted or xlsx).
func Decode(data []byte, format, sheet string) (*types.Dataset, error) {
	switch format {
	case config.FormatCSV, "":
		return Parse(string(data)), nil
	case config.FormatCSVQuoted:
		return ParseQuoted(string(data))
	case config.FormatXLSX:
		return ParseXLSX(data, sheet)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// LoadPair loads both datasets concurrently. Either result may be nil when
// its load failed; errs holds one entry per failed loader, keyed by kind.
func LoadPair(ctx context.Context, participations, plan *Loader) (part, pl *types.Dataset, errs map[string]error) {
	var g errgroup.Group
	var partErr, planErr error

	g.Go(func() error {
		part, partErr = participations.Load(ctx)
		return nil
	})
	g.Go(func() error {
		pl, planErr = plan.Load(ctx)
		return nil
	})
	_ = g.Wait()

	errs = make(map[string]error)
	if partErr != nil {
		errs[participations.Kind()] = partErr
	}
	if planErr != nil {
		errs[plan.Kind()] = planErr
	}
	return part, pl, errs
}
