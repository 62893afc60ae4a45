package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"atscore/internal/errors"
	"atscore/internal/screening"
)

// Skipped names an upload that could not be processed during screening.
type Skipped struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ScreenResult lists the uploads that passed the criteria, in input order.
type ScreenResult struct {
	Count     int               `json:"count"`
	Results   []screening.Match `json:"results"`
	Processed int               `json:"-"`
	Skipped   []Skipped         `json:"-"`
}

// Screen processes files concurrently and keeps those matching criteria.
// Uploads that fail processing are skipped and logged.
func (p *Processor) Screen(ctx context.Context, files []Upload, criteria screening.Criteria) (*ScreenResult, error) {
	type outcome struct {
		match   screening.Match
		matched bool
		err     error
	}
	outcomes := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, f := range files {
		g.Go(func() error {
			res, err := p.Process(gctx, f)
			if err != nil {
				p.logger.LogError(err, "Skipping resume during screening", "filename", f.Filename)
				outcomes[i].err = err
				return nil
			}
			outcomes[i].match, outcomes[i].matched = criteria.Evaluate(screening.Candidate{
				Filename: f.Filename,
				Fields:   res.Data,
				Report:   res.Report,
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeCancelled, "screening cancelled", err)
	}

	result := &ScreenResult{Results: []screening.Match{}}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			result.Skipped = append(result.Skipped, Skipped{Filename: files[i].Filename, Reason: o.err.Error()})
		case o.matched:
			result.Results = append(result.Results, o.match)
			result.Processed++
		default:
			result.Processed++
		}
	}
	result.Count = len(result.Results)

	p.recorder.RecordScreening(ctx, len(files), result.Count)
	p.logger.Info("Screening complete",
		"files", len(files), "processed", result.Processed, "skipped", len(result.Skipped), "matches", result.Count)
	return result, nil
}
