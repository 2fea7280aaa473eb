// Command heapdb is a command-line client for a heapdb data directory.
// Every command runs in a single transaction.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"heapdb/config"
	"heapdb/file"
	"heapdb/logger"
	"heapdb/query"
	"heapdb/record"
	"heapdb/server"
)

// CLI defines the command-line interface for heapdb.
type CLI struct {
	Globals

	Create    CreateCmd    `cmd:"" help:"Create a table"`
	Insert    InsertCmd    `cmd:"" help:"Insert one row"`
	Scan      ScanCmd      `cmd:"" help:"Print the rows of a table"`
	Delete    DeleteCmd    `cmd:"" help:"Delete matching rows"`
	Aggregate AggregateCmd `cmd:"" help:"Compute an aggregate over a field"`
	Tables    TablesCmd    `cmd:"" help:"List tables"`
	Stats     StatsCmd     `cmd:"" help:"Show table and buffer pool statistics"`
}

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `name:"config" short:"c" help:"Path to the ini config file" type:"path" default:"heapdb.ini"`
	DataDir string `name:"data-dir" short:"d" help:"Override the data directory"`

	out io.Writer
}

func (g *Globals) open() (*server.DB, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DataDir != "" {
		cfg.DataDir = g.DataDir
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, err
	}
	return server.Open(cfg)
}

// run opens the database, executes fn in one transaction and closes the
// database again.
func (g *Globals) run(fn func(ctx context.Context, db *server.DB, tx *server.Tx) error) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	return db.Run(ctx, func(tx *server.Tx) error {
		return fn(ctx, db, tx)
	})
}

type CreateCmd struct {
	Table  string   `arg:"" help:"Table name"`
	Fields []string `arg:"" help:"Fields as NAME:TYPE, where TYPE is int or string(N)"`
}

func (c *CreateCmd) Run(g *Globals) error {
	schema, err := parseSchema(c.Fields)
	if err != nil {
		return err
	}
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.CreateTable(c.Table, schema); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "created %s (%v)\n", c.Table, schema)
	return nil
}

type InsertCmd struct {
	Table  string   `arg:"" help:"Table name"`
	Values []string `arg:"" help:"One value per field"`
}

func (c *InsertCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, db *server.DB, tx *server.Tx) error {
		hf, err := db.Table(c.Table)
		if err != nil {
			return err
		}
		values, err := parseValues(hf.Schema(), c.Values)
		if err != nil {
			return err
		}
		return tx.Insert(ctx, c.Table, values...)
	})
}

type ScanCmd struct {
	Table string `arg:"" help:"Table name"`
	Where string `name:"where" short:"w" help:"Filter such as \"age >= 30 AND name = 'bob'\""`
}

func (c *ScanCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, db *server.DB, tx *server.Tx) error {
		scan, err := tx.Query(c.Table, c.Where)
		if err != nil {
			return err
		}
		rows, err := query.Collect(ctx, scan)
		if err != nil {
			return err
		}
		return printRows(g.out, scan.Schema(), rows)
	})
}

type DeleteCmd struct {
	Table string `arg:"" help:"Table name"`
	Where string `name:"where" short:"w" required:"" help:"Filter selecting the rows to delete"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, db *server.DB, tx *server.Tx) error {
		n, err := tx.Delete(ctx, c.Table, c.Where)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "deleted %d rows\n", n)
		return nil
	})
}

type AggregateCmd struct {
	Table   string `arg:"" help:"Table name"`
	Op      string `name:"op" required:"" enum:"count,sum,avg,min,max" help:"Aggregate function"`
	Field   string `name:"field" short:"f" required:"" help:"Field to aggregate"`
	GroupBy string `name:"group-by" short:"g" help:"Field to group by"`
}

func (c *AggregateCmd) Run(g *Globals) error {
	op, err := query.ParseAggOp(c.Op)
	if err != nil {
		return err
	}
	return g.run(func(ctx context.Context, db *server.DB, tx *server.Tx) error {
		schema, rows, err := tx.Aggregate(ctx, c.Table, op, c.Field, c.GroupBy)
		if err != nil {
			return err
		}
		return printRows(g.out, schema, rows)
	})
}

type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range db.Tables() {
		hf, err := db.Table(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "%s (%v)\n", name, hf.Schema())
	}
	return nil
}

type StatsCmd struct {
	Tables []string `arg:"" optional:"" help:"Tables to report on; all when omitted"`
}

func (c *StatsCmd) Run(g *Globals) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	names := c.Tables
	if len(names) == 0 {
		names = db.Tables()
	}

	ctx := context.Background()
	w := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tPAGES\tSIZE\tROWS")
	for _, name := range names {
		info, err := db.TableStats(ctx, name)
		if err != nil {
			return err
		}
		size := uint64(info.PagesAccessed()) * file.PageSize
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name,
			humanize.Comma(int64(info.PagesAccessed())),
			humanize.IBytes(size),
			humanize.Comma(int64(info.RecordsOutput())))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := db.Stats()
	fmt.Fprintf(g.out, "buffer pool: %d/%d pages (%s), %s hits, %s misses, %s evictions\n",
		s.Cached, s.Capacity, humanize.IBytes(uint64(s.Capacity)*file.PageSize),
		humanize.Comma(int64(s.Hits)), humanize.Comma(int64(s.Misses)), humanize.Comma(int64(s.Evictions)))
	return nil
}

// parseSchema builds a schema from NAME:TYPE arguments.
func parseSchema(fields []string) (*record.Schema, error) {
	schema := record.NewSchema()
	for _, f := range fields {
		name, spec, ok := strings.Cut(f, ":")
		if !ok || name == "" {
			return nil, errors.Errorf("field %q is not NAME:TYPE", f)
		}
		if schema.HasField(name) {
			return nil, errors.Errorf("duplicate field %q", name)
		}
		fieldType, length, err := record.ParseFieldSpec(spec)
		if err != nil {
			return nil, err
		}
		schema.AddField(name, fieldType, length)
	}
	return schema, nil
}

// parseValues converts command-line arguments to the field types of schema.
func parseValues(schema *record.Schema, args []string) ([]any, error) {
	if len(args) != schema.NumFields() {
		return nil, errors.Errorf("got %d values for %d fields (%v)", len(args), schema.NumFields(), schema)
	}
	values := make([]any, len(args))
	for i, arg := range args {
		name := schema.Field(i)
		if schema.FieldType(name) == record.Varchar {
			values[i] = arg
			continue
		}
		n, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return nil, errors.Errorf("field %s: %q is not an int", name, arg)
		}
		values[i] = int32(n)
	}
	return values, nil
}

func printRows(out io.Writer, schema *record.Schema, rows []*record.Tuple) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(schema.Fields(), "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, row.String())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d rows)\n", len(rows))
	return nil
}

func main() {
	var cli CLI
	cli.out = os.Stdout
	ctx := kong.Parse(&cli,
		kong.Name("heapdb"),
		kong.Description("Page-oriented storage engine with strict two-phase locking"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
