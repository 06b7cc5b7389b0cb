package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/citymap/internal/city"
	"github.com/sells-group/citymap/internal/geo"
)

// membership holds per-city results indexed [city][candidate].
type membership struct {
	inside [][]bool
	distKM [][]float64
}

// evaluate runs the configured membership test for every candidate against
// every city, one city per worker. Workers only read candidates and write
// their own row of the result.
func evaluate(ctx context.Context, catalog *city.Catalog, cands []candidate, opts Options) (*membership, error) {
	n := catalog.Len()
	m := &membership{
		inside: make([][]bool, n),
		distKM: make([][]float64, n),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := 0; i < n; i++ {
		ct := catalog.At(i)
		g.Go(func() error {
			test, err := city.NewMembership(ct, opts.RadiusKM, opts.Mode, opts.membership())
			if err != nil {
				return eris.Wrap(err, "pipeline: membership")
			}

			inside := make([]bool, len(cands))
			dist := make([]float64, len(cands))
			for j, c := range cands {
				if j%1024 == 0 && gCtx.Err() != nil {
					return eris.Wrap(gCtx.Err(), "pipeline: context cancelled")
				}

				d, err := geo.HaversineKM(ct.Center, c.coord)
				if err != nil {
					return eris.Wrapf(err, "pipeline: distance to %s", ct.Name)
				}
				dist[j] = d

				ok, err := test.Contains(c.coord)
				if err != nil {
					// Points the projection cannot represent are never members.
					zap.L().Debug("pipeline: membership test failed",
						zap.String("city", ct.Name),
						zap.String("record", c.id),
						zap.Error(err),
					)
					continue
				}
				inside[j] = ok
			}

			m.inside[i] = inside
			m.distKM[i] = dist
			zap.L().Debug("pipeline: city evaluated",
				zap.String("city", ct.Name),
				zap.Int("members", count(inside)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// resolve applies a match rule to candidate j. labelIdx is meaningful only
// when labeled is true.
func (m *membership) resolve(rule Rule, labelIdx int, labeled bool, j int) (int, bool) {
	switch rule {
	case RuleLabel:
		return labelIdx, labeled
	case RuleCoordinate:
		return m.nearest(j)
	case RuleLabelOrCoordinate:
		if labeled {
			return labelIdx, true
		}
		return m.nearest(j)
	default: // RuleLabelAndCoordinate
		if labeled && m.inside[labelIdx][j] {
			return labelIdx, true
		}
		return -1, false
	}
}

// nearest returns the closest city whose circle holds candidate j. Equal
// distances go to the city listed first.
func (m *membership) nearest(j int) (int, bool) {
	best, found := -1, false
	for i := range m.inside {
		if !m.inside[i][j] {
			continue
		}
		if !found || m.distKM[i][j] < m.distKM[best][j] {
			best, found = i, true
		}
	}
	return best, found
}

func count(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
