package ps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/op"
)

const (
	tableFileSuffix = ".table"
	rowsFileName    = "rows.json"
)

// tableFile is the JSON stored at <registry>/<table>.table.
type tableFile struct {
	Name     string                `json:"name"`
	Position int                   `json:"position"`
	NextID   int64                 `json:"next_id"`
	Columns  []op.ColumnDescriptor `json:"columns"`
}

type rowRecord struct {
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

// SaveRegistry commits the schema and rows of every table in registry as one
// snapshot. Tables dropped from the registry since the last snapshot are
// removed from the tree.
func (p *Persistence) SaveRegistry(registry *op.Registry, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if message == "" {
		message = "Snapshot " + registry.Name()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	root, err := p.currentTree()
	if err != nil {
		return Transaction{}, err
	}

	written := make(map[string]bool)
	var changes []treeChange

	for position, table := range registry.Tables() {
		// Rows first: a concurrent insert can only push NextID further out.
		rows := table.SelectAll()
		meta := tableFile{
			Name:     table.Name(),
			Position: position,
			NextID:   table.NextID(),
			Columns:  op.Describe(table.Columns()).Columns,
		}

		metaData, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to encode table %s: %w", table.Name(), err)
		}
		rowsData, err := encodeRows(rows)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to encode rows of %s: %w", table.Name(), err)
		}

		metaBlob, err := p.createBlob(metaData)
		if err != nil {
			return Transaction{}, err
		}
		rowsBlob, err := p.createBlob(rowsData)
		if err != nil {
			return Transaction{}, err
		}
		changes = append(changes,
			treeChange{Path: path.Join(registry.Name(), table.Name()+tableFileSuffix), BlobHash: metaBlob},
			treeChange{Path: path.Join(registry.Name(), table.Name(), rowsFileName), BlobHash: rowsBlob},
		)
		written[table.Name()+tableFileSuffix] = true
		written[table.Name()] = true
	}

	stale, err := p.registryEntries(root, registry.Name())
	if err != nil {
		return Transaction{}, err
	}
	for _, entry := range stale {
		if !written[entry.Name] {
			changes = append(changes, treeChange{Path: path.Join(registry.Name(), entry.Name), IsDelete: true})
		}
	}

	newRoot, err := p.applyChanges(root, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.commitTree(newRoot, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}

// registryEntries lists the direct children of the registry directory in the
// tree rooted at root.
func (p *Persistence) registryEntries(root plumbing.Hash, name string) ([]object.TreeEntry, error) {
	entries, err := p.treeEntries(root)
	if err != nil {
		return nil, err
	}
	dir, ok := entries[name]
	if !ok || dir.Mode != filemode.Dir {
		return nil, nil
	}

	children, err := p.treeEntries(dir.Hash)
	if err != nil {
		return nil, err
	}
	list := make([]object.TreeEntry, 0, len(children))
	for _, child := range children {
		list = append(list, child)
	}
	return list, nil
}

// LoadRegistry rebuilds the registry called name from the HEAD snapshot.
// It returns ErrNoSnapshot when HEAD holds no such registry.
func (p *Persistence) LoadRegistry(name string, opts ...op.RegistryOption) (*op.Registry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	commit, err := p.headCommit()
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, name)
	}
	return p.loadFromCommit(commit, name, opts...)
}

// LoadRegistryAt rebuilds the registry called name as it was in txn.
func (p *Persistence) LoadRegistryAt(txn Transaction, name string, opts ...op.RegistryOption) (*op.Registry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	commit, err := p.commitFor(txn)
	if err != nil {
		return nil, err
	}
	return p.loadFromCommit(commit, name, opts...)
}

func (p *Persistence) loadFromCommit(commit *object.Commit, name string, opts ...op.RegistryOption) (*op.Registry, error) {
	root, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	dir, err := root.Tree(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at %s", ErrNoSnapshot, name, commit.Hash)
	}

	var metas []tableFile
	for _, entry := range dir.Entries {
		if entry.Mode == filemode.Dir || !strings.HasSuffix(entry.Name, tableFileSuffix) {
			continue
		}
		data, err := readFile(dir, entry.Name)
		if err != nil {
			return nil, err
		}
		var meta tableFile
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptSnapshot, name, entry.Name, err)
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Position < metas[j].Position })

	defs := make([]op.TableDef, 0, len(metas))
	for _, meta := range metas {
		columns, err := op.Schema{Columns: meta.Columns}.ToColumns()
		if err != nil {
			return nil, fmt.Errorf("%w: table %s: %v", ErrCorruptSnapshot, meta.Name, err)
		}
		defs = append(defs, op.TableDef{Name: meta.Name, Columns: columns})
	}

	registry := op.NewRegistry(name, opts...)
	tables, err := registry.CreateTables(defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	for i, table := range tables {
		rows, err := p.readRows(dir, table)
		if err != nil {
			return nil, err
		}
		if err := table.Restore(rows, metas[i].NextID); err != nil {
			return nil, fmt.Errorf("%w: table %s: %v", ErrCorruptSnapshot, table.Name(), err)
		}
	}

	return registry, nil
}

func (p *Persistence) readRows(dir *object.Tree, table *op.Table) ([]core.Row, error) {
	data, err := readFile(dir, path.Join(table.Name(), rowsFileName))
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(data, table)
	if err != nil {
		return nil, fmt.Errorf("%w: rows of %s: %v", ErrCorruptSnapshot, table.Name(), err)
	}
	return rows, nil
}

func encodeRows(rows []core.Row) ([]byte, error) {
	records := make([]rowRecord, len(rows))
	for i, row := range rows {
		records[i] = rowRecord{ID: row.ID, Fields: row.Fields}
	}
	return json.MarshalIndent(records, "", "  ")
}

// decodeRows parses rows.json, restoring Go types the column declares:
// integers come back as int64 (uint64 past its range) and dates written from
// a time.Time come back as time.Time.
func decodeRows(data []byte, table *op.Table) ([]core.Row, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var records []rowRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, err
	}

	rows := make([]core.Row, len(records))
	for i, record := range records {
		fields := make(map[string]any, len(record.Fields))
		for key, raw := range record.Fields {
			col, ok := table.Column(key)
			if !ok {
				fields[key] = raw
				continue
			}
			value, err := decodeValue(col, raw)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", record.ID, key, err)
			}
			fields[key] = value
		}
		rows[i] = core.Row{ID: record.ID, Fields: fields}
	}
	return rows, nil
}

func decodeValue(col core.Column, raw any) (any, error) {
	switch col.Type.Kind {
	case core.IntType:
		n, ok := raw.(json.Number)
		if !ok {
			return raw, nil
		}
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %s", n)
		}
		return u, nil
	case core.DateType:
		s, ok := raw.(string)
		if !ok {
			return raw, nil
		}
		if _, err := time.Parse(core.DateLayout, s); err == nil {
			return s, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("not a date: %q", s)
		}
		return t, nil
	}
	return raw, nil
}
