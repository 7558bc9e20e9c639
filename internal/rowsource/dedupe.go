package rowsource

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// seenSet tracks IDs already encountered. add reports whether the ID is new.
type seenSet interface {
	add(id string) (first bool, err error)
	close()
}

// noSeen treats every ID as new.
type noSeen struct{}

func (noSeen) add(string) (bool, error) { return true, nil }
func (noSeen) close()                   {}

// badgerSeen spills the seen-ID set to disk so very large sheets don't pin
// a second copy of every ID in memory.
type badgerSeen struct {
	db  *badger.DB
	dir string
}

func newBadgerSeen(scratchDir string) (*badgerSeen, error) {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	dir, err := os.MkdirTemp(scratchDir, "rowsource-dedupe-*")
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(filepath.Join(dir, "seen.badger")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return &badgerSeen{db: db, dir: dir}, nil
}

func (b *badgerSeen) add(id string) (bool, error) {
	first := false
	err := b.db.Update(func(txn *badger.Txn) error {
		k := []byte(id)
		_, e := txn.Get(k)
		if e == badger.ErrKeyNotFound {
			first = true
			return txn.Set(k, []byte{1})
		}
		return e
	})
	return first, err
}

func (b *badgerSeen) close() {
	_ = b.db.Close()
	_ = os.RemoveAll(b.dir)
}
