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
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Query filters a log listing.
type Query struct {
	Levels    []Level
	Before    UnixMillisecond // 0 means "most recent".
	Sources   []string
	RenderIDs []string
	Limit     int
}

// Query returns log entries matching q, newest first.
func (d *DB) Query(q Query) ([]Log, error) {
	var logs []Log

	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dbBucket))
		c := b.Cursor()

		matches := func(raw []byte) (Log, bool, error) {
			var log Log
			if err := json.Unmarshal(raw, &log); err != nil {
				return Log{}, false, fmt.Errorf("unmarshal log: %w", err)
			}
			if !levelMatches(log.Level, q.Levels) {
				return log, false, nil
			}
			if !stringMatches(log.Src, q.Sources) {
				return log, false, nil
			}
			if !stringMatches(log.RenderID, q.RenderIDs) {
				return log, false, nil
			}
			return log, true, nil
		}

		var key, value []byte
		if q.Before == 0 {
			key, value = c.Last()
		} else {
			c.Seek(encodeKey(uint64(q.Before)))
			key, value = c.Prev()
		}

		limit := q.Limit
		if limit <= 0 {
			limit = defaultMaxKeys
		}

		for key != nil && len(logs) < limit {
			log, ok, err := matches(value)
			if err != nil {
				return err
			}
			if ok {
				logs = append(logs, log)
			}
			key, value = c.Prev()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func levelMatches(level Level, levels []Level) bool {
	if levels == nil {
		return true
	}
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func stringMatches(s string, set []string) bool {
	if set == nil {
		return true
	}
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
