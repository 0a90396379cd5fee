package checkout

import (
	"context"
	stderrors "errors"
)

type publishers []Publisher

// Publishers fans an outcome out to every non-nil publisher and joins their errors
func Publishers(ps ...Publisher) Publisher {
	out := make(publishers, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (ps publishers) Publish(ctx context.Context, outcome Outcome) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
