package metadata

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"heapdb/record"
)

// CatalogFile is the name of the catalog inside the data directory.
const CatalogFile = "catalog.toml"

// catalogDoc is the on-disk form of the catalog:
//
//	[[table]]
//	name = "people"
//	file = "people.dat"
//	[[table.fields]]
//	name = "id"
//	type = "int"
type catalogDoc struct {
	Tables []tableDef `toml:"table"`
}

type tableDef struct {
	Name   string     `toml:"name"`
	File   string     `toml:"file"`
	Fields []fieldDef `toml:"fields"`
}

type fieldDef struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Length int32  `toml:"length,omitempty"`
}

func newTableDef(name, filename string, schema *record.Schema) tableDef {
	def := tableDef{Name: name, File: filename}
	for _, f := range schema.Fields() {
		def.Fields = append(def.Fields, fieldDef{
			Name:   f,
			Type:   schema.FieldType(f).String(),
			Length: schema.FieldLength(f),
		})
	}
	return def
}

func (d tableDef) schema() (*record.Schema, error) {
	schema := record.NewSchema()
	for _, f := range d.Fields {
		switch f.Type {
		case record.Integer.String():
			schema.AddIntField(f.Name)
		case record.Varchar.String():
			schema.AddStringField(f.Name, f.Length)
		default:
			return nil, errors.Errorf("table %s: field %s has unknown type %q", d.Name, f.Name, f.Type)
		}
	}
	return schema, nil
}

func readCatalog(path string) (catalogDoc, error) {
	var doc catalogDoc
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrapf(err, "read %s", path)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "parse %s", path)
	}
	return doc, nil
}

// writeCatalog replaces the catalog file through a temporary file.
func writeCatalog(path string, doc catalogDoc) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o666); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, path), "replace %s", path)
}
