package metadata

import (
	"regexp"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"heapdb/buffer"
	"heapdb/file"
	"heapdb/heap"
	"heapdb/logger"
	"heapdb/record"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type table struct {
	def  tableDef
	file *heap.File
}

// Catalog maps table names and ids to their heap files and schemas. It is
// the buffer.Catalog of the pool whose Fetcher it is bound to.
type Catalog struct {
	mu     sync.RWMutex
	fm     *file.Manager
	pool   heap.Fetcher
	byName map[string]*table
	byID   map[file.TableID]*table
	log    *logrus.Entry
}

var _ buffer.Catalog = (*Catalog)(nil)

func NewCatalog(fm *file.Manager) *Catalog {
	return &Catalog{
		fm:     fm,
		byName: make(map[string]*table),
		byID:   make(map[file.TableID]*table),
		log:    logger.For("catalog"),
	}
}

// Load binds the catalog to pool and opens every table listed in the
// catalog file. A missing file means an empty catalog.
func (c *Catalog) Load(pool heap.Fetcher) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pool = pool
	doc, err := readCatalog(c.fm.Path(CatalogFile))
	if err != nil {
		return err
	}
	for _, def := range doc.Tables {
		schema, err := def.schema()
		if err != nil {
			return err
		}
		if err := c.open(def, schema); err != nil {
			return err
		}
	}
	c.log.WithField("tables", len(doc.Tables)).Info("catalog loaded")
	return nil
}

// CreateTable creates an empty heap file for name and records it in the
// catalog file.
func (c *Catalog) CreateTable(name string, schema *record.Schema) (*heap.File, error) {
	if !tableName.MatchString(name) {
		return nil, errors.Errorf("invalid table name %q", name)
	}
	if schema.NumFields() == 0 {
		return nil, errors.Errorf("table %s has no fields", name)
	}
	if record.NewLayout(schema).SlotsPerPage() == 0 {
		return nil, errors.Errorf("table %s: tuples do not fit in a page", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil {
		return nil, errors.New("catalog is not loaded")
	}
	if _, ok := c.byName[name]; ok {
		return nil, errors.Wrap(ErrTableExists, name)
	}

	def := newTableDef(name, name+".dat", schema)
	if err := c.open(def, schema); err != nil {
		return nil, err
	}
	if err := c.save(); err != nil {
		t := c.byName[name]
		delete(c.byName, name)
		delete(c.byID, t.file.ID())
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"table": name, "schema": schema.String()}).Info("table created")
	return c.byName[name].file, nil
}

// Table returns the heap file of name.
func (c *Catalog) Table(name string) (*heap.File, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byName[name]
	if !ok {
		return nil, errors.Wrap(ErrNoSuchTable, name)
	}
	return t.file, nil
}

// TableName returns the name a table id is registered under.
func (c *Catalog) TableName(id file.TableID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return "", errors.Wrapf(ErrNoSuchTable, "id %x", uint64(id))
	}
	return t.def.Name, nil
}

func (c *Catalog) DBFile(id file.TableID) (buffer.DBFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchTable, "id %x", uint64(id))
	}
	return t.file, nil
}

// Tables returns the table names in sorted order.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// open must be called with the mutex held.
func (c *Catalog) open(def tableDef, schema *record.Schema) error {
	hf, err := heap.Open(c.fm, def.File, schema, c.pool)
	if err != nil {
		return errors.Wrapf(err, "open table %s", def.Name)
	}
	if other, ok := c.byID[hf.ID()]; ok {
		return errors.Errorf("tables %s and %s share file %s", other.def.Name, def.Name, def.File)
	}

	t := &table{def: def, file: hf}
	c.byName[def.Name] = t
	c.byID[hf.ID()] = t
	return nil
}

// save must be called with the mutex held.
func (c *Catalog) save() error {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := catalogDoc{Tables: make([]tableDef, 0, len(names))}
	for _, name := range names {
		doc.Tables = append(doc.Tables, c.byName[name].def)
	}
	return writeCatalog(c.fm.Path(CatalogFile), doc)
}
