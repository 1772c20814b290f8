package migration

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dualbase/internal/config"
	"dualbase/internal/model"
	"dualbase/internal/registry"
)

// lockCollection holds at most one document; whoever inserts it owns the
// migration lock until the document is deleted.
const lockCollection = "migration_lock"

const lockRetryInterval = 500 * time.Millisecond

// mongoDriver runs document-store units as ordered database commands and
// keeps status and history in bookkeeping collections.
type mongoDriver struct {
	reg *registry.Registry
	cfg config.MigrationConfig
}

func newMongoDriver(reg *registry.Registry, cfg config.MigrationConfig) *mongoDriver {
	return &mongoDriver{reg: reg, cfg: cfg}
}

func (d *mongoDriver) database() (*mongo.Database, error) {
	handle, err := d.reg.Mongo()
	if err != nil {
		return nil, err
	}
	return handle.Database(), nil
}

// EnsureReady is a no-op: collections materialize on first write.
func (d *mongoDriver) EnsureReady(ctx context.Context) error {
	_, err := d.database()
	return err
}

// Lock inserts the lock document, retrying while another run holds it.
func (d *mongoDriver) Lock(ctx context.Context) (func(context.Context), error) {
	db, err := d.database()
	if err != nil {
		return nil, err
	}
	coll := db.Collection(lockCollection)

	for {
		_, err := coll.InsertOne(ctx, bson.D{
			{Key: "_id", Value: "migrations"},
			{Key: "acquired_at", Value: time.Now().UTC()},
		})
		if err == nil {
			break
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("acquire migration lock: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func(unlockCtx context.Context) {
		_, _ = coll.DeleteOne(unlockCtx, bson.D{{Key: "_id", Value: "migrations"}})
	}, nil
}

func (d *mongoDriver) Executed(ctx context.Context) ([]StatusRecord, error) {
	db, err := d.database()
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(d.cfg.StatusCollection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "ts", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load migration status: %w", err)
	}
	var records []StatusRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode migration status: %w", err)
	}
	return records, nil
}

func (d *mongoDriver) ApplyUnit(ctx context.Context, u Unit) error {
	db, err := d.database()
	if err != nil {
		return err
	}
	unit, err := d.readUnit(u)
	if err != nil {
		return err
	}

	for _, cmd := range unit.Up {
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("run command %s: %w", commandName(cmd), err)
		}
	}
	return d.upsertStatus(ctx, u, StatusExecuted, "")
}

func (d *mongoDriver) RevertUnit(ctx context.Context, u Unit) error {
	db, err := d.database()
	if err != nil {
		return err
	}
	unit, err := d.readUnit(u)
	if err != nil {
		return err
	}

	for _, cmd := range unit.Down {
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("run command %s: %w", commandName(cmd), err)
		}
	}
	_, err = db.Collection(d.cfg.StatusCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: u.Key()}})
	if err != nil {
		return fmt.Errorf("clear status: %w", err)
	}
	return nil
}

func (d *mongoDriver) MarkFailed(ctx context.Context, u Unit, direction, errText string) error {
	db, err := d.database()
	if err != nil {
		return err
	}
	if direction == DirectionDown {
		// The unit stays executed; only the error text is attached.
		_, err := db.Collection(d.cfg.StatusCollection).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: u.Key()}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "error", Value: errText}}}})
		return err
	}
	return d.upsertStatus(ctx, u, StatusFailed, errText)
}

func (d *mongoDriver) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	db, err := d.database()
	if err != nil {
		return err
	}
	_, err = db.Collection(d.cfg.HistoryCollection).InsertOne(ctx, rec)
	return err
}

func (d *mongoDriver) History(ctx context.Context) ([]HistoryRecord, error) {
	db, err := d.database()
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(d.cfg.HistoryCollection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load migration history: %w", err)
	}
	var records []HistoryRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode migration history: %w", err)
	}
	return records, nil
}

// GeneratePlan diffs the declared collections against the live ones and
// emits create commands for the missing set, drops for rollback.
func (d *mongoDriver) GeneratePlan(ctx context.Context, name string, timestamp int64) (string, bool, error) {
	db, err := d.database()
	if err != nil {
		return "", false, err
	}

	live, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return "", false, fmt.Errorf("list collections: %w", err)
	}
	existing := make(map[string]bool, len(live))
	for _, c := range live {
		existing[c] = true
	}

	var missing []string
	for _, kind := range model.Kinds() {
		if !existing[kind.Collection] {
			missing = append(missing, kind.Collection)
		}
	}
	if len(missing) == 0 {
		return "", false, nil
	}
	sort.Strings(missing)

	up := make([]command, 0, len(missing))
	down := make([]command, 0, len(missing))
	for _, coll := range missing {
		up = append(up, command{Verb: "create", Value: coll})
	}
	// Drops run in reverse creation order.
	for i := len(missing) - 1; i >= 0; i-- {
		down = append(down, command{Verb: "drop", Value: missing[i]})
	}
	return renderCommandUnit(name, timestamp, up, down), true, nil
}

func (d *mongoDriver) upsertStatus(ctx context.Context, u Unit, status Status, errText string) error {
	db, err := d.database()
	if err != nil {
		return err
	}
	_, err = db.Collection(d.cfg.StatusCollection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: u.Key()}},
		StatusRecord{
			Name:       u.Key(),
			Timestamp:  u.Timestamp,
			Status:     status,
			Error:      errText,
			ExecutedAt: time.Now().UTC(),
		},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("record status: %w", err)
	}
	return nil
}

func (d *mongoDriver) readUnit(u Unit) (CommandUnit, error) {
	content, err := os.ReadFile(u.Path)
	if err != nil {
		return CommandUnit{}, fmt.Errorf("read unit %s: %w", u.FileName, err)
	}
	unit, err := ParseCommandUnit(content)
	if err != nil {
		return CommandUnit{}, fmt.Errorf("parse unit %s: %w", u.FileName, err)
	}
	return unit, nil
}

func commandName(cmd bson.D) string {
	if len(cmd) == 0 {
		return "(empty)"
	}
	return cmd[0].Key
}
