package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each table as a collection of documents. Column
// definitions live in the _datagen_columns collection, one document per
// table.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// stagingPrefix marks collections that hold a table while it is written.
const stagingPrefix = "_datagen_staging_"

type columnsDoc struct {
	Table   string      `bson:"_id"`
	Columns []columnDoc `bson:"columns"`
}

type columnDoc struct {
	Name string `bson:"name"`
	Type string `bson:"type"`
}

func OpenMongo(ctx context.Context, url string) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(url)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, &SinkUnavailableError{Sink: "mongodb", Err: err}
	}

	return &MongoStore{client: client, database: client.Database(mongoDBName(url, clientOpts))}, nil
}

// mongoDBName takes the database from the URL path, then the auth source,
// then falls back to "datagen".
func mongoDBName(url string, opts *options.ClientOptions) string {
	if i := strings.Index(url, "://"); i >= 0 {
		rest := url[i+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			db := rest[slash+1:]
			if q := strings.Index(db, "?"); q >= 0 {
				db = db[:q]
			}
			if db != "" && db != "admin" {
				return db
			}
		}
	}
	if opts != nil && opts.Auth != nil && opts.Auth.AuthSource != "" && opts.Auth.AuthSource != "admin" {
		return opts.Auth.AuthSource
	}
	return "datagen"
}

func (m *MongoStore) Name() string { return "mongodb" }

func (m *MongoStore) Close() error {
	if m.client != nil {
		return m.client.Disconnect(context.Background())
	}
	return nil
}

func (m *MongoStore) fail(op, table string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return &SinkUnavailableError{Sink: m.Name(), Err: err}
	}
	return &SinkError{Sink: m.Name(), Op: op, Table: table, Err: err}
}

func (m *MongoStore) TableExists(ctx context.Context, name string) (bool, error) {
	names, err := m.database.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, m.fail("check table", name, err)
	}
	return len(names) > 0, nil
}

func (m *MongoStore) ListTables(ctx context.Context) ([]string, error) {
	names, err := m.database.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, m.fail("list tables", "", err)
	}
	tables := names[:0]
	for _, name := range names {
		if name != metaTable && !strings.HasPrefix(name, stagingPrefix) {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

func (m *MongoStore) storedColumns(ctx context.Context, name string) ([]types.Column, error) {
	var doc columnsDoc
	err := m.database.Collection(metaTable).FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	columns := make([]types.Column, len(doc.Columns))
	for i, c := range doc.Columns {
		st, err := types.ParseSemanticType(c.Type)
		if err != nil {
			return nil, err
		}
		columns[i] = types.Column{Name: c.Name, Type: st}
	}
	return columns, nil
}

func toDocuments(columns []types.Column, rows []types.Row) []interface{} {
	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		doc := make(bson.D, 0, len(columns))
		for _, col := range columns {
			doc = append(doc, bson.E{Key: col.Name, Value: row[col.Name]})
		}
		docs[i] = doc
	}
	return docs
}

// CreateOrReplace inserts every row into a staging collection, then
// renames it over the target so a failed insert leaves the previous
// collection untouched. The metadata is written last.
func (m *MongoStore) CreateOrReplace(ctx context.Context, t *types.Table) error {
	staging := m.database.Collection(stagingPrefix + t.Name)
	if err := staging.Drop(ctx); err != nil {
		return m.fail("drop", staging.Name(), err)
	}

	if len(t.Rows) > 0 {
		if _, err := staging.InsertMany(ctx, toDocuments(t.Columns, t.Rows)); err != nil {
			staging.Drop(context.WithoutCancel(ctx))
			return m.fail("insert", t.Name, err)
		}
	} else if err := m.database.CreateCollection(ctx, staging.Name()); err != nil {
		return m.fail("create", t.Name, err)
	}

	dbName := m.database.Name()
	rename := bson.D{
		{Key: "renameCollection", Value: dbName + "." + staging.Name()},
		{Key: "to", Value: dbName + "." + t.Name},
		{Key: "dropTarget", Value: true},
	}
	if err := m.client.Database("admin").RunCommand(ctx, rename).Err(); err != nil {
		staging.Drop(context.WithoutCancel(ctx))
		return m.fail("replace", t.Name, err)
	}

	meta := columnsDoc{Table: t.Name, Columns: make([]columnDoc, len(t.Columns))}
	for i, col := range t.Columns {
		meta.Columns[i] = columnDoc{Name: col.Name, Type: string(col.Type)}
	}
	_, err := m.database.Collection(metaTable).ReplaceOne(ctx, bson.M{"_id": t.Name}, meta, options.Replace().SetUpsert(true))
	if err != nil {
		return m.fail("record columns", t.Name, err)
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return &SinkUnavailableError{Sink: m.Name(), Err: err}
	}
	return nil
}

func (m *MongoStore) CheckAppend(ctx context.Context, name string, t *types.Table) error {
	exists, err := m.TableExists(ctx, name)
	if err != nil || !exists {
		return err
	}

	stored, err := m.storedColumns(ctx, name)
	if err != nil {
		return m.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "collection was not created by datagen and has no recorded column types"}
	}
	return checkAppend(name, stored, t.Columns)
}

func (m *MongoStore) DropTable(ctx context.Context, name string) error {
	if err := m.database.Collection(name).Drop(ctx); err != nil {
		return m.fail("drop", name, err)
	}
	if _, err := m.database.Collection(metaTable).DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return m.fail("drop", name, err)
	}
	return nil
}

func (m *MongoStore) Append(ctx context.Context, name string, t *types.Table) error {
	exists, err := m.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &TableNotFoundError{Sink: m.Name(), Table: name}
	}

	stored, err := m.storedColumns(ctx, name)
	if err != nil {
		return m.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "collection was not created by datagen and has no recorded column types"}
	}
	if err := checkAppend(name, stored, t.Columns); err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		return nil
	}

	if _, err := m.database.Collection(name).InsertMany(ctx, toDocuments(stored, t.Rows)); err != nil {
		return m.fail("append", name, err)
	}
	return nil
}

func (m *MongoStore) ReadAll(ctx context.Context, name string) (*types.Table, error) {
	exists, err := m.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &TableNotFoundError{Sink: m.Name(), Table: name}
	}

	columns, err := m.storedColumns(ctx, name)
	if err != nil {
		return nil, m.fail("read columns", name, err)
	}

	cursor, err := m.database.Collection(name).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, m.fail("read", name, err)
	}
	defer cursor.Close(ctx)

	table := &types.Table{Name: name, Columns: columns}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, m.fail("read", name, err)
		}

		// Collections written elsewhere get string columns from the first
		// document's keys.
		if len(table.Columns) == 0 {
			for _, e := range doc {
				if e.Key != "_id" {
					table.Columns = append(table.Columns, types.Column{Name: e.Key, Type: types.TypeString})
				}
			}
		}

		fields := doc.Map()
		raw := make([]any, len(table.Columns))
		for i, col := range table.Columns {
			raw[i] = mongoValue(fields[col.Name])
		}
		row, err := decodeRow(table.Columns, raw)
		if err != nil {
			return nil, m.fail("read", name, err)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, m.fail("read", name, err)
	}
	return table, nil
}

func mongoValue(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func (m *MongoStore) Export(_ context.Context, t *types.Table, format, dir string) (string, error) {
	path, err := export.Export(t, format, dir)
	if err != nil {
		return "", &SinkError{Sink: m.Name(), Op: "export", Table: t.Name, Err: err}
	}
	return path, nil
}
