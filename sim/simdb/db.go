// Package simdb implements persistent storage of organism populations on top
// of a LevelDB key-value store.
package simdb

import (
	"encoding/json"
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/organism"
	"github.com/phlipsje/continuum/sim/world"
)

// DB is a LevelDB-backed store of organisms. Every organism is stored under
// its uuid, as its kind key, its encoded behaviour payload, its position and
// its size.
type DB struct {
	ldb *leveldb.DB
}

// record is the stored form of a single organism.
type record struct {
	Key  string     `json:"key"`
	Data string     `json:"data"`
	Pos  [3]float64 `json:"pos"`
	Size float64    `json:"size"`
}

// Open opens a DB at the path passed, creating it if it does not yet exist.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open organism db: %w", err)
	}
	return &DB{ldb: ldb}, nil
}

// SavePopulation stores every organism of the index passed, replacing the
// full population previously stored.
func (db *DB) SavePopulation(idx *world.ChunkedIndex) error {
	if err := db.clear(); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for o := range idx.Organisms() {
		id := o.ID()
		data, err := json.Marshal(record{
			Key:  o.Key(),
			Data: o.Behaviour().EncodeBehaviour(),
			Pos:  [3]float64(o.Position()),
			Size: o.Size(),
		})
		if err != nil {
			return fmt.Errorf("save population: encode %v: %w", id, err)
		}
		batch.Put(id[:], data)
	}
	if err := db.ldb.Write(batch, nil); err != nil {
		return fmt.Errorf("save population: %w", err)
	}
	return nil
}

// LoadPopulation decodes every stored organism through the registry passed
// and adds it to the index. It returns the number of organisms loaded.
func (db *DB) LoadPopulation(reg *organism.Registry, idx *world.ChunkedIndex) (int, error) {
	it := db.ldb.NewIterator(nil, nil)
	defer it.Release()

	n := 0
	for it.Next() {
		var rec record
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return n, fmt.Errorf("load population: decode record %x: %w", it.Key(), err)
		}
		b, err := reg.Decode(rec.Key, rec.Data)
		if err != nil {
			return n, fmt.Errorf("load population: %w", err)
		}
		o := world.NewOrganism(b, mgl64.Vec3(rec.Pos), rec.Size)
		idx.AddOrganism(o)
		n++
	}
	if err := it.Error(); err != nil {
		return n, fmt.Errorf("load population: %w", err)
	}
	return n, nil
}

// clear removes every stored organism.
func (db *DB) clear() error {
	it := db.ldb.NewIterator(nil, nil)
	defer it.Release()
	batch := new(leveldb.Batch)
	for it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		batch.Delete(k)
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("clear population: %w", err)
	}
	if err := db.ldb.Write(batch, nil); err != nil {
		return fmt.Errorf("clear population: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.ldb.Close()
}
