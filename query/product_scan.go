package query

import (
	"context"

	"heapdb/record"
)

// ProductScan pairs every tuple of scan1 with every tuple of scan2. scan2 is
// rewound once per tuple of scan1.
type ProductScan struct {
	scan1  Scan
	scan2  Scan
	schema *record.Schema
	left   *record.Tuple
	cur    *record.Tuple
}

func NewProductScan(scan1 Scan, scan2 Scan) *ProductScan {
	schema := record.NewSchema()
	schema.AddAll(scan1.Schema())
	schema.AddAll(scan2.Schema())
	return &ProductScan{
		scan1:  scan1,
		scan2:  scan2,
		schema: schema,
	}
}

func (ps *ProductScan) Open(ctx context.Context) error {
	if err := ps.scan1.Open(ctx); err != nil {
		return err
	}
	if err := ps.scan2.Open(ctx); err != nil {
		return err
	}
	ps.left = nil
	return nil
}

func (ps *ProductScan) Next(ctx context.Context) (bool, error) {
	for {
		if ps.left == nil {
			ok, err := ps.scan1.Next(ctx)
			if err != nil || !ok {
				ps.cur = nil
				return false, err
			}
			ps.left = ps.scan1.Tuple()
			if err := ps.scan2.Rewind(ctx); err != nil {
				return false, err
			}
		}

		ok, err := ps.scan2.Next(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			ps.left = nil
			continue
		}

		values := append(ps.left.Values(), ps.scan2.Tuple().Values()...)
		ps.cur, err = record.NewTuple(ps.schema, values...)
		return err == nil, err
	}
}

func (ps *ProductScan) Tuple() *record.Tuple {
	return ps.cur
}

func (ps *ProductScan) Rewind(ctx context.Context) error {
	ps.left = nil
	ps.cur = nil
	return ps.scan1.Rewind(ctx)
}

func (ps *ProductScan) Schema() *record.Schema {
	return ps.schema
}

func (ps *ProductScan) Close() {
	ps.scan1.Close()
	ps.scan2.Close()
}
