package memdriver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/godm/adapter/index"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// maxLine is the longest line Load accepts.
const maxLine = 16 << 20

type indexKey struct {
	Key   string `json:"key"`
	Order int64  `json:"order"`
}

type indexCreated struct {
	Name   string     `json:"name"`
	Keys   []indexKey `json:"keys"`
	Unique bool       `json:"unique,omitempty"`
	Sparse bool       `json:"sparse,omitempty"`
}

type indexLine struct {
	IndexCreated *indexCreated `json:"$$indexCreated"`
}

// Dump writes collection to w as JSON lines: one line per index other than
// _id_, then one line per document, in insertion order.
func (d *MemDriver) Dump(ctx context.Context, name string, w io.Writer) error {
	if err := d.lock.acquire(ctx); err != nil {
		return err
	}
	defer d.lock.release()

	c, _ := d.collection(name, false)
	if c == nil {
		return nil
	}

	wr := bufio.NewWriter(contextio.NewWriter(ctx, w))
	for _, idx := range c.indexes {
		if idx.Name() == IDIndex {
			continue
		}
		model := idx.Model()
		line := indexLine{IndexCreated: &indexCreated{
			Name:   model.Name,
			Keys:   make([]indexKey, len(model.Keys)),
			Unique: model.Unique,
			Sparse: model.Sparse,
		}}
		for n, k := range model.Keys {
			line.IndexCreated.Keys[n] = indexKey{Key: k.Key, Order: k.Order}
		}
		b, err := json.Marshal(line)
		if err != nil {
			return err
		}
		if _, err := wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	for _, e := range c.entries {
		b, err := d.serializer.Serialize(ctx, e.Doc)
		if err != nil {
			return err
		}
		if _, err := wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return wr.Flush()
}

// Load replaces collection with the contents of r, as written by Dump.
// Empty lines are skipped. On error, the collection is left untouched.
func (d *MemDriver) Load(ctx context.Context, name string, r io.Reader) error {
	c, err := d.read(ctx, name, r)
	if err != nil {
		return err
	}

	if err := d.lock.acquire(ctx); err != nil {
		return err
	}
	defer d.lock.release()
	d.collections[name] = c
	d.logger.DebugContext(ctx, "load", "collection", name, "count", len(c.entries), "indexes", len(c.indexes))
	return nil
}

func (d *MemDriver) read(ctx context.Context, name string, r io.Reader) (*collection, error) {
	c, err := d.newCollection(name)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(contextio.NewReader(ctx, r))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var idxLine indexLine
		if bytes.Contains(line, []byte(`"$$indexCreated"`)) {
			if err := json.Unmarshal(line, &idxLine); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
		}
		if created := idxLine.IndexCreated; created != nil {
			model := domain.IndexModel{Name: created.Name, Unique: created.Unique, Sparse: created.Sparse}
			for _, k := range created.Keys {
				model.Keys = append(model.Keys, domain.SortName{Key: k.Key, Order: k.Order})
			}
			idx, err := d.newIndex(name, model)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			c.indexes = append(c.indexes, idx)
			continue
		}

		var doc domain.M
		if err := d.deserializer.Deserialize(ctx, line, &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		if doc == nil {
			doc = domain.M{}
		}
		if err := d.ensureID(doc); err != nil {
			return nil, err
		}
		c.entries = append(c.entries, &index.Entry{Doc: doc})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := c.insert(ctx, c.entries...); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveFile dumps collection into filename. The previous file content is
// replaced only once the new one is fully written.
func (d *MemDriver) SaveFile(ctx context.Context, name string, filename string) error {
	err := d.storage.WriteFile(ctx, filename, func(w io.Writer) error {
		return d.Dump(ctx, name, w)
	})
	if err != nil {
		return err
	}
	d.logger.DebugContext(ctx, "saved", "collection", name, "file", filename)
	return nil
}

// LoadFile replaces collection with the content of filename, as written by
// SaveFile. A missing file fails with an error matching [fs.ErrNotExist].
func (d *MemDriver) LoadFile(ctx context.Context, name string, filename string) error {
	f, err := d.storage.Open(ctx, filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.Load(ctx, name, f)
}
