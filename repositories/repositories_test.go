package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtlelab/labtrack/database"
	"github.com/turtlelab/labtrack/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Initialize test database using the actual migration system
	require.NoError(t, database.RunMigrations(db))
	return db
}

func TestRecordStoreCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.ConditionSchema)
	ctx := context.Background()

	id, err := store.Create(ctx, models.Fields{"condition": "-80"}, 1, "cs-1")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	record, err := store.GetByUnique(ctx, "-80")
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, "cs-1", record.Checksum)
	assert.Equal(t, "-80", record.Fields["condition"])

	byID, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.Fields, byID.Fields)

	exists, err := store.Exists(ctx, "-80")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "RT")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetByUnique(ctx, "RT")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordStoreUpdateVersionGuard(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.ConditionSchema)
	ctx := context.Background()

	_, err := store.Create(ctx, models.Fields{"condition": "-20"}, 1, "cs-1")
	require.NoError(t, err)

	err = store.Update(ctx, "-20", models.Fields{"condition": "-20"}, 1, "cs-2")
	require.NoError(t, err)

	record, err := store.GetByUnique(ctx, "-20")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Version)
	assert.Equal(t, "cs-2", record.Checksum)

	// A second writer still holding version 1 must lose the race.
	err = store.Update(ctx, "-20", models.Fields{"condition": "-20"}, 1, "cs-3")
	assert.ErrorIs(t, err, ErrVersionMismatch)

	err = store.Update(ctx, "missing", models.Fields{"condition": "missing"}, 1, "cs-4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordStoreDelete(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.ConditionSchema)
	ctx := context.Background()

	_, err := store.Create(ctx, models.Fields{"condition": "RT"}, 1, "cs-1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "RT"))
	assert.ErrorIs(t, store.Delete(ctx, "RT"), ErrNotFound)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecordStoreCreateMinted(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.SampleSchema)
	ctx := context.Background()

	fields := models.Fields{
		"sample": "tmp-1", "name": "Plasma A", "account": "acc-1",
		"type": "Internal", "volume": "500", "uom": "ul",
	}
	id, unique, err := store.CreateMinted(ctx, fields, 1, "cs-tmp", func(id int64) (string, string, error) {
		return fmt.Sprintf("S%06d", id), "cs-final", nil
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("S%06d", id), unique)

	record, err := store.GetByUnique(ctx, unique)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "cs-final", record.Checksum)
	assert.Equal(t, unique, record.Fields["sample"])
}

func TestRecordStoreCreateMintedRollsBackOnMintFailure(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.SampleSchema)
	ctx := context.Background()

	fields := models.Fields{
		"sample": "tmp-1", "name": "Plasma A", "account": "acc-1",
		"type": "Internal", "volume": "500", "uom": "ul",
	}
	mintErr := fmt.Errorf("identifier out of range")
	_, _, err := store.CreateMinted(ctx, fields, 1, "cs-tmp", func(int64) (string, string, error) {
		return "", "", mintErr
	})
	assert.ErrorIs(t, err, mintErr)

	// The insert rolled back with the mint; no placeholder row remains.
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	_, err = store.GetByUnique(ctx, "tmp-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordStoreCreateDuplicateUnique(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.ConditionSchema)
	ctx := context.Background()

	_, err := store.Create(ctx, models.Fields{"condition": "-80"}, 1, "cs-1")
	require.NoError(t, err)

	_, err = store.Create(ctx, models.Fields{"condition": "-80"}, 1, "cs-2")
	assert.ErrorIs(t, err, ErrDuplicate)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordStoreFilterAndOrder(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, models.ReagentSchema)
	ctx := context.Background()

	for i, reagent := range []models.Fields{
		{"reagent": "P000001", "name": "PBS", "type": "Buffer"},
		{"reagent": "P000002", "name": "TE", "type": "Buffer"},
		{"reagent": "P000003", "name": "Taq", "type": "Enzyme"},
	} {
		_, err := store.Create(ctx, reagent, 1, "cs")
		require.NoError(t, err, "reagent %d", i)
	}

	buffers, err := store.Filter(ctx, models.Fields{"type": "Buffer"}, "-id")
	require.NoError(t, err)
	require.Len(t, buffers, 2)
	assert.Equal(t, "TE", buffers[0].Fields["name"])
	assert.Equal(t, "PBS", buffers[1].Fields["name"])

	all, err := store.Filter(ctx, nil, "name")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "PBS", all[0].Fields["name"])

	_, err = store.Filter(ctx, models.Fields{"nope": 1}, "")
	assert.Error(t, err)

	_, err = store.Filter(ctx, nil, "-nope")
	assert.Error(t, err)
}

func TestRecordStoreScanKinds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	accounts := NewRecordStore(db, models.AccountSchema)
	_, err := accounts.Create(ctx, models.Fields{
		"account": "acc-1", "freeze_condition": "-80",
		"freeze_time": 30 * 24 * time.Hour, "freeze_uom": "d",
		"thaw_condition": "RT", "thaw_time": 2 * time.Hour, "thaw_uom": "h",
		"thaw_count": 3,
	}, 1, "cs")
	require.NoError(t, err)

	record, err := accounts.GetByUnique(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, record.Fields["freeze_time"])
	assert.Equal(t, 2*time.Hour, record.Fields["thaw_time"])
	assert.Equal(t, int64(3), record.Fields["thaw_count"])

	users := NewRecordStore(db, models.UserSchema)
	_, err = users.Create(ctx, models.Fields{
		"username": "doej", "first_name": "Jane", "last_name": "Doe",
		"role": "admin", "is_active": true, "initial_password": false,
		"password": "$argon2id$...",
	}, 1, "cs")
	require.NoError(t, err)

	user, err := users.GetByUnique(ctx, "doej")
	require.NoError(t, err)
	assert.Equal(t, true, user.Fields["is_active"])
	assert.Equal(t, false, user.Fields["initial_password"])
	assert.Nil(t, user.Fields["last_login"])
}

func TestRecordStoreSetAux(t *testing.T) {
	db := setupTestDB(t)
	users := NewRecordStore(db, models.UserSchema)
	ctx := context.Background()

	_, err := users.Create(ctx, models.Fields{
		"username": "doej", "first_name": "Jane", "last_name": "Doe",
		"role": "admin", "is_active": true, "initial_password": false,
		"password": "$argon2id$...",
	}, 1, "cs")
	require.NoError(t, err)

	ts := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, users.SetAux(ctx, "doej", "last_login", ts))

	user, err := users.GetByUnique(ctx, "doej")
	require.NoError(t, err)
	assert.Equal(t, ts, user.Fields["last_login"])
	assert.Equal(t, 1, user.Version, "aux writes do not bump the version")
	assert.Equal(t, "cs", user.Checksum, "aux writes do not touch the checksum")

	// Only declared aux columns are writable this way.
	assert.Error(t, users.SetAux(ctx, "doej", "is_active", false))
	assert.ErrorIs(t, users.SetAux(ctx, "ghost", "last_login", ts), ErrNotFound)
}

func TestAuditStoreAppendAndList(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuditStore(db, models.ConditionSchema)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	first := &models.AuditEntry{
		EntryID: "e-1", IDRef: 7,
		Fields:  models.Fields{"condition": "-80"},
		Version: 1, Action: models.ActionCreate, User: "doej",
		Timestamp: ts, Checksum: "cs-1",
	}
	require.NoError(t, store.Append(ctx, first))
	assert.Greater(t, first.ID, int64(0))

	second := &models.AuditEntry{
		EntryID: "e-2", IDRef: 7,
		Fields:  models.Fields{"condition": "-78"},
		Version: 2, Action: models.ActionUpdate, User: "doej",
		Timestamp: ts.Add(time.Hour), Checksum: "cs-2",
	}
	require.NoError(t, store.Append(ctx, second))

	entries, err := store.ListByRef(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "e-2", entries[0].EntryID)
	assert.Equal(t, models.ActionUpdate, entries[0].Action)
	assert.Equal(t, "-78", entries[0].Fields["condition"])
	assert.Equal(t, 2, entries[0].Version)
	assert.True(t, entries[0].Timestamp.Equal(ts.Add(time.Hour)))
	assert.Equal(t, "e-1", entries[1].EntryID)

	other, err := store.ListByRef(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, other)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUserAuditEntriesOmitPassword(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuditStore(db, models.UserSchema)
	ctx := context.Background()

	entry := &models.AuditEntry{
		EntryID: "e-1", IDRef: 1,
		Fields: models.Fields{
			"username": "doej", "first_name": "Jane", "last_name": "Doe",
			"role": "admin", "is_active": true, "initial_password": true,
			"password": "must-not-be-stored",
		},
		Version: 1, Action: models.ActionCreate, User: "admin",
		Timestamp: time.Now().UTC(), Checksum: "cs",
	}
	require.NoError(t, store.Append(ctx, entry))

	entries, err := store.ListByRef(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doej", entries[0].Fields["username"])
	assert.NotContains(t, entries[0].Fields, "password")
}

func TestLogStoreAppendAndFilter(t *testing.T) {
	db := setupTestDB(t)
	store := NewLogStore(db, models.LoginLogSchema)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, fields := range []models.Fields{
		{"user": "doej", "action": models.LoginActionAttempt, "attempts": 1,
			"method": "local", "active": true, "timestamp": ts},
		{"user": "doej", "action": models.LoginActionLogin, "attempts": 0,
			"method": "local", "active": true, "timestamp": ts.Add(time.Minute)},
		{"user": "roes", "action": models.LoginActionLogin, "attempts": 0,
			"method": "sso", "active": true, "timestamp": ts.Add(2 * time.Minute)},
	} {
		_, err := store.Append(ctx, fields, "cs")
		require.NoError(t, err, "row %d", i)
	}

	rows, err := store.Filter(ctx, models.Fields{"user": "doej"}, "-id")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.LoginActionLogin, rows[0].Fields["action"])
	assert.Equal(t, int64(1), rows[1].Fields["attempts"])
	assert.Equal(t, true, rows[0].Fields["active"])

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTimesStoreIntervals(t *testing.T) {
	db := setupTestDB(t)
	store := NewTimesStore(db)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := store.Append(ctx, models.Fields{
		"id_ref": 4, "id_second": 1, "item": "S000004",
		"method": models.MethodFreeze, "time": ts, "duration": nil,
	}, "cs-open")
	require.NoError(t, err)

	count, err := store.CountByRef(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	last, err := store.LastByRef(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, id, last.ID)
	assert.Nil(t, last.Fields["duration"], "open interval has no duration yet")

	require.NoError(t, store.CloseInterval(ctx, id, 2*time.Hour, "cs-closed"))

	last, err = store.LastByRef(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, last.Fields["duration"])
	assert.Equal(t, "cs-closed", last.Checksum)

	_, err = store.LastByRef(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.CloseInterval(ctx, id+99, time.Hour, "cs"), ErrNotFound)
}

func TestDynamicStore(t *testing.T) {
	db := setupTestDB(t)
	store := NewDynamicStore(db)
	ctx := context.Background()

	_, err := store.Create(ctx, 3, "concentration", "10 mM", "cs-1")
	require.NoError(t, err)
	_, err = store.Create(ctx, 3, "supplier", "ACME", "cs-2")
	require.NoError(t, err)

	attr, err := store.Get(ctx, 3, "concentration")
	require.NoError(t, err)
	assert.Equal(t, "10 mM", attr.Value)
	assert.Equal(t, "cs-1", attr.Checksum)

	exists, err := store.Exists(ctx, 3, "supplier")
	require.NoError(t, err)
	assert.True(t, exists)

	attrs, err := store.ListByRef(ctx, 3)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "concentration", attrs[0].Name)
	assert.Equal(t, "supplier", attrs[1].Name)

	require.NoError(t, store.Update(ctx, 3, "concentration", "20 mM", "cs-3"))
	attr, err = store.Get(ctx, 3, "concentration")
	require.NoError(t, err)
	assert.Equal(t, "20 mM", attr.Value)
	assert.Equal(t, "cs-3", attr.Checksum)

	assert.ErrorIs(t, store.Update(ctx, 3, "missing", "x", "cs"), ErrNotFound)

	require.NoError(t, store.Delete(ctx, 3, "supplier"))
	_, err = store.Get(ctx, 3, "supplier")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteByRef(ctx, 3))
	attrs, err = store.ListByRef(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
