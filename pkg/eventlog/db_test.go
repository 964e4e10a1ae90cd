package eventlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	db := NewDB(dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, db.Init(ctx))
	return db
}

func TestSaveAndQuery(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.saveLog(Log{Time: 1000, Level: LevelError, Src: "render", RenderID: "r1", Msg: "a"}))
	require.NoError(t, db.saveLog(Log{Time: 2000, Level: LevelInfo, Src: "asset", Msg: "b"}))
	require.NoError(t, db.saveLog(Log{Time: 3000, Level: LevelError, Src: "render", RenderID: "r2", Msg: "c"}))

	all, err := db.Query(Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].Msg) // newest first.

	errOnly, err := db.Query(Query{Levels: []Level{LevelError}})
	require.NoError(t, err)
	require.Len(t, errOnly, 2)

	byRender, err := db.Query(Query{RenderIDs: []string{"r1"}})
	require.NoError(t, err)
	require.Len(t, byRender, 1)
	require.Equal(t, "a", byRender[0].Msg)
}

func TestEviction(t *testing.T) {
	db := newTestDB(t)
	db.maxKeys = 2

	require.NoError(t, db.saveLog(Log{Time: 1, Msg: "first"}))
	require.NoError(t, db.saveLog(Log{Time: 2, Msg: "second"}))
	require.NoError(t, db.saveLog(Log{Time: 3, Msg: "third"}))

	logs, err := db.Query(Query{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "third", logs[0].Msg)
	require.Equal(t, "second", logs[1].Msg)
}
