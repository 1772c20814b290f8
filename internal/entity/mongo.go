package entity

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dualbase/internal/model"
	"dualbase/internal/registry"
)

// mongoBackend implements the façade operations on the document store.
// Logical column names are shared with the relational backend; only the id
// field is renamed to the driver's _id.
type mongoBackend struct {
	reg *registry.Registry
}

func mongoField(col string) string {
	if col == "id" {
		return "_id"
	}
	return col
}

func toBSON(filter Filter) bson.M {
	doc := bson.M{}
	for col, val := range filter {
		doc[mongoField(col)] = val
	}
	return doc
}

func (m *mongoBackend) collection(kind model.Kind) (*mongo.Collection, error) {
	handle, err := m.reg.Mongo()
	if err != nil {
		return nil, err
	}
	return handle.Database().Collection(kind.Collection), nil
}

func (m *mongoBackend) create(ctx context.Context, kind model.Kind, rec any) error {
	coll, err := m.collection(kind)
	if err != nil {
		return err
	}
	_, err = coll.InsertOne(ctx, rec)
	return err
}

func (m *mongoBackend) findOne(ctx context.Context, kind model.Kind, filter Filter, dest any) (bool, error) {
	coll, err := m.collection(kind)
	if err != nil {
		return false, err
	}

	err = coll.FindOne(ctx, toBSON(filter)).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *mongoBackend) find(ctx context.Context, kind model.Kind, filter Filter, opts Options, dest any) error {
	coll, err := m.collection(kind)
	if err != nil {
		return err
	}

	findOpts := options.Find()
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.OrderBy != "" {
		dir := 1
		if opts.Descending {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: mongoField(opts.OrderBy), Value: dir}})
	}

	cursor, err := coll.Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, dest)
}

func (m *mongoBackend) update(ctx context.Context, kind model.Kind, id string, rec any) (int64, error) {
	coll, err := m.collection(kind)
	if err != nil {
		return 0, err
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, rec)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (m *mongoBackend) remove(ctx context.Context, kind model.Kind, id string) (int64, error) {
	coll, err := m.collection(kind)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *mongoBackend) count(ctx context.Context, kind model.Kind, filter Filter) (int64, error) {
	coll, err := m.collection(kind)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, toBSON(filter))
}

// inTransaction runs work inside a driver session; the session rides in
// the context, so façade operations made with it join the transaction.
func (m *mongoBackend) inTransaction(ctx context.Context, work func(ctx context.Context) error) error {
	handle, err := m.reg.Mongo()
	if err != nil {
		return err
	}

	sess, err := handle.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, work(sc)
	})
	return err
}
