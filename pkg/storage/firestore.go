package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Every record is stored as a JSON blob in a "json" field under
// sites/{siteID}.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	siteID    string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.siteID == "" {
		return errors.New("site id cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("sites").Doc(f.siteID).Collection(name)
}

// decodeDoc unmarshals the "json" field of a document.
func decodeDoc[T any](ctx context.Context, doc *firestore.DocumentSnapshot) (T, error) {
	var v T
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docPath", doc.Ref.Path), slog.Any("err", err))
		return v, fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docPath", doc.Ref.Path))
		return v, fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("docPath", doc.Ref.Path), slog.Any("err", err))
		return v, fmt.Errorf("failed to unmarshal document (id=%s): %w", doc.Ref.ID, err)
	}
	return v, nil
}

// decodeAll drains iter, decoding every document.
func decodeAll[T any](ctx context.Context, iter *firestore.DocumentIterator) ([]T, error) {
	defer iter.Stop()
	var out []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating documents: %w", err)
		}
		v, err := decodeDoc[T](ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// latest returns the most recent document of a collection by timestamp, or nil.
func latest[T any](ctx context.Context, coll *firestore.CollectionRef) (*T, error) {
	iter := coll.OrderBy("timestamp", firestore.Desc).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s doc: %w", coll.ID, err)
	}
	v, err := decodeDoc[T](ctx, doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func marshalDoc(v any, extra map[string]interface{}) (map[string]interface{}, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{"json": string(jsonBytes)}
	for k, val := range extra {
		data[k] = val
	}
	return data, nil
}

// ListLoads returns every load ordered by id.
func (f *FirestoreProvider) ListLoads(ctx context.Context) ([]types.Load, error) {
	loads, err := decodeAll[types.Load](ctx, f.collection("loads").OrderBy("id", firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	return loads, nil
}

// GetLoads returns the loads with the given ids, ignoring unknown ids.
func (f *FirestoreProvider) GetLoads(ctx context.Context, ids []int64) ([]types.Load, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	coll := f.collection("loads")
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, coll.Doc(strconv.FormatInt(id, 10)))
	}
	docs, err := f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get loads: %w", err)
	}
	var loads []types.Load
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		l, err := decodeDoc[types.Load](ctx, doc)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	slices.SortFunc(loads, func(a, b types.Load) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return loads, nil
}

// CreateLoad assigns the next load id from the "config/counters" document and
// stores the load, both in one transaction.
func (f *FirestoreProvider) CreateLoad(ctx context.Context, load types.Load) (types.Load, error) {
	counters := f.collection("config").Doc("counters")
	loads := f.collection("loads")

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var next int64 = 1
		doc, err := tx.Get(counters)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("failed to read counters: %w", err)
		default:
			if v, err := doc.DataAt("nextLoadID"); err == nil {
				if n, ok := v.(int64); ok && n > 0 {
					next = n
				}
			}
		}

		load.ID = next
		data, err := marshalDoc(load, map[string]interface{}{"id": load.ID})
		if err != nil {
			return fmt.Errorf("failed to marshal load: %w", err)
		}
		if err := tx.Create(loads.Doc(strconv.FormatInt(load.ID, 10)), data); err != nil {
			return err
		}
		return tx.Set(counters, map[string]interface{}{"nextLoadID": next + 1}, firestore.MergeAll)
	})
	if err != nil {
		return types.Load{}, fmt.Errorf("%w: failed to create load: %w", ErrPersistence, err)
	}
	return load, nil
}

// SetLoadState switches a load on or off.
func (f *FirestoreProvider) SetLoadState(ctx context.Context, id int64, on bool) error {
	ref := f.collection("loads").Doc(strconv.FormatInt(id, 10))
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrLoadNotFound
			}
			return err
		}
		load, err := decodeDoc[types.Load](ctx, doc)
		if err != nil {
			return err
		}
		load.On = on
		data, err := marshalDoc(load, map[string]interface{}{"id": load.ID})
		if err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if errors.Is(err, ErrLoadNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: failed to set load state: %w", ErrPersistence, err)
	}
	return nil
}

// InsertMeasurement stores the production, battery and consumption readings
// of a measurement in one transaction. Document IDs start with the RFC3339
// timestamp for lexicographic ordering.
func (f *FirestoreProvider) InsertMeasurement(ctx context.Context, m types.Measurement) error {
	ts := m.Timestamp.UTC()
	if ts.IsZero() {
		return errors.New("measurement missing timestamp")
	}
	prefix := ts.Format(time.RFC3339Nano) + "_"

	type write struct {
		ref  *firestore.DocumentRef
		data map[string]interface{}
	}
	var writes []write
	add := func(coll string, v any) error {
		data, err := marshalDoc(v, map[string]interface{}{"timestamp": ts})
		if err != nil {
			return err
		}
		writes = append(writes, write{f.collection(coll).Doc(prefix + uuid.NewString()), data})
		return nil
	}

	m.Production.Timestamp = ts
	m.Battery.Timestamp = ts
	if err := add("production_history", m.Production); err != nil {
		return fmt.Errorf("failed to marshal production: %w", err)
	}
	if err := add("battery_history", m.Battery); err != nil {
		return fmt.Errorf("failed to marshal battery: %w", err)
	}
	for _, c := range m.Consumptions {
		c.Timestamp = ts
		if err := add("consumption_history", c); err != nil {
			return fmt.Errorf("failed to marshal consumption: %w", err)
		}
	}

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, w := range writes {
			if err := tx.Set(w.ref, w.data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to insert measurement: %w", ErrPersistence, err)
	}
	return nil
}

// GetLatestProduction retrieves the most recent production reading.
func (f *FirestoreProvider) GetLatestProduction(ctx context.Context) (*types.ProductionReading, error) {
	return latest[types.ProductionReading](ctx, f.collection("production_history"))
}

// GetLatestBattery retrieves the most recent battery reading.
func (f *FirestoreProvider) GetLatestBattery(ctx context.Context) (*types.BatteryReading, error) {
	return latest[types.BatteryReading](ctx, f.collection("battery_history"))
}

// InsertAudit appends an audit record.
func (f *FirestoreProvider) InsertAudit(ctx context.Context, rec types.AuditRecord) error {
	data, err := marshalDoc(rec, map[string]interface{}{"timestamp": rec.Timestamp})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal audit record: %w", ErrPersistence, err)
	}
	docID := rec.Timestamp.UTC().Format(time.RFC3339Nano) + "_" + rec.ID
	if _, err := f.collection("audit_history").Doc(docID).Create(ctx, data); err != nil {
		return fmt.Errorf("%w: failed to insert audit record: %w", ErrPersistence, err)
	}
	return nil
}

// GetAuditHistory retrieves audit records within [start, end).
func (f *FirestoreProvider) GetAuditHistory(ctx context.Context, start, end time.Time) ([]types.AuditRecord, error) {
	iter := f.collection("audit_history").
		Where("timestamp", ">=", start).
		Where("timestamp", "<", end).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	recs, err := decodeAll[types.AuditRecord](ctx, iter)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	return recs, nil
}
