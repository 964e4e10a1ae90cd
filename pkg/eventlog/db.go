// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const dbBucket = "1"

const defaultMaxKeys = 100000

// DB persists log events to an embedded bbolt database, evicting the
// oldest entry once maxKeys is reached.
type DB struct {
	dbPath  string
	maxKeys int

	db *bolt.DB
	wg *sync.WaitGroup

	saveWG *sync.WaitGroup
}

// NewDB returns a DB backed by dbPath.
func NewDB(dbPath string) *DB {
	return &DB{
		dbPath:  dbPath,
		maxKeys: defaultMaxKeys,
		wg:      &sync.WaitGroup{},
		saveWG:  &sync.WaitGroup{},
	}
}

// Init opens the database, creating it and its bucket if necessary.
func (d *DB) Init(ctx context.Context) error {
	db, err := bolt.Open(d.dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("could not open database: %w: %v", err, d.dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(dbBucket))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create bucket: %v: %w", dbBucket, err)
	}
	d.db = db

	d.wg.Add(1)
	go func() {
		<-ctx.Done()
		d.saveWG.Wait()
		db.Close()
		d.wg.Done()
	}()
	return nil
}

// SaveLogs subscribes to l and persists every event until ctx is canceled.
func (d *DB) SaveLogs(ctx context.Context, l *Logger) {
	feed, cancel := l.Subscribe()
	defer cancel()

	d.saveWG.Add(1)
	for {
		select {
		case <-ctx.Done():
			d.saveWG.Done()
			return
		case log := <-feed:
			if err := d.saveLog(log); err != nil {
				fmt.Fprintf(os.Stderr, "could not save log: %v: %v\n", log.Msg, err)
			}
		}
	}
}

func (d *DB) saveLog(log Log) error {
	key := encodeKey(uint64(log.Time))
	value, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dbBucket))
		if b.Stats().KeyN >= d.maxKeys {
			if err := deleteOldest(b); err != nil {
				return fmt.Errorf("delete oldest: %w", err)
			}
		}
		return b.Put(key, value)
	})
}

func deleteOldest(b *bolt.Bucket) error {
	k, _ := b.Cursor().First()
	if k == nil {
		return nil
	}
	return b.Delete(k)
}

func encodeKey(key uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, key)
	return out
}
