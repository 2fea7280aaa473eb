package query

import (
	"context"

	"github.com/pkg/errors"

	"heapdb/record"
)

// SelectScan passes through the tuples of its child that satisfy pred.
type SelectScan struct {
	scan Scan
	pred *Predicate
}

func NewSelectScan(scan Scan, pred *Predicate) *SelectScan {
	return &SelectScan{
		scan: scan,
		pred: pred,
	}
}

func (ss *SelectScan) Open(ctx context.Context) error {
	if !ss.pred.AppliesTo(ss.scan.Schema()) {
		return errors.Wrapf(ErrFieldNotFound, "predicate %v over (%v)", ss.pred, ss.scan.Schema())
	}
	return ss.scan.Open(ctx)
}

func (ss *SelectScan) Next(ctx context.Context) (bool, error) {
	for {
		ok, err := ss.scan.Next(ctx)
		if err != nil || !ok {
			return false, err
		}
		match, err := ss.pred.IsSatisfied(ss.scan.Tuple())
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
}

func (ss *SelectScan) Tuple() *record.Tuple {
	return ss.scan.Tuple()
}

func (ss *SelectScan) Rewind(ctx context.Context) error {
	return ss.scan.Rewind(ctx)
}

func (ss *SelectScan) Schema() *record.Schema {
	return ss.scan.Schema()
}

func (ss *SelectScan) Close() {
	ss.scan.Close()
}
