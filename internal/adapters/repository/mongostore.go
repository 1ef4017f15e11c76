package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// listDoc is one document of the lists collection.
type listDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    any                `bson:"user_id"`
	Name      string             `bson:"name"`
	Beers     []entryDoc         `bson:"beers"`
	CreatedAt time.Time          `bson:"created_at"`
}

// entryDoc is one element of a list's beers array.
type entryDoc struct {
	BeerID      any       `bson:"beer_id"`
	EloScore    int       `bson:"elo_score"`
	Comparisons int       `bson:"comparisons"`
	CreatedAt   time.Time `bson:"created_at,omitempty"`
}

func (d listDoc) toModel() model.List {
	l := model.List{
		Owner:     canonicalID(d.UserID),
		Name:      d.Name,
		Entries:   make([]model.RatedEntry, 0, len(d.Beers)),
		CreatedAt: d.CreatedAt,
	}
	for _, e := range d.Beers {
		l.Entries = append(l.Entries, e.toModel())
	}
	return l
}

func (e entryDoc) toModel() model.RatedEntry {
	return model.RatedEntry{
		BeerRef:         model.BeerRef(canonicalID(e.BeerID)),
		Rating:          e.EloScore,
		ComparisonCount: e.Comparisons,
		AddedAt:         e.CreatedAt,
	}
}

func entryFromModel(e model.RatedEntry) entryDoc {
	return entryDoc{
		BeerID:      string(e.BeerRef),
		EloScore:    e.Rating,
		Comparisons: e.ComparisonCount,
		CreatedAt:   e.AddedAt,
	}
}

// MongoStore is a Store over a MongoDB collection with one document per
// list. Entry writes address a single array element, so each per-entry
// update is atomic at document level.
type MongoStore struct {
	db    *MongoDB
	lists *mongo.Collection
	opts  mongoOptions
}

// NewMongoStore builds a store on db.
func NewMongoStore(db *MongoDB, opts ...MongoOption) (*MongoStore, error) {
	if db == nil {
		return nil, ErrNilClient
	}
	o := defaultMongoOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MongoStore{db: db, lists: db.Collection(o.listsCollection), opts: o}, nil
}

// EnsureIndexes creates the unique (user_id, name) index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	_, err := s.lists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_list_name"),
	})
	if err != nil {
		return fmt.Errorf("create list index: %w", err)
	}
	return nil
}

func listFilter(key model.ListKey) bson.M {
	return bson.M{
		"user_id": bson.M{"$in": storedForms(key.Owner)},
		"name":    key.Name,
	}
}

func (s *MongoStore) find(ctx context.Context, key model.ListKey) (listDoc, error) {
	var doc listDoc
	err := s.lists.FindOne(ctx, listFilter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return listDoc{}, ranking.ErrListNotFound
	}
	if err != nil {
		return listDoc{}, fmt.Errorf("find list: %w", err)
	}
	return doc, nil
}

// GetList implements ranking.ListStore.
func (s *MongoStore) GetList(ctx context.Context, key model.ListKey) (list model.List, err error) {
	defer observe(backendMongo, "get_list", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	doc, err := s.find(ctx, key)
	if err != nil {
		return model.List{}, err
	}
	return doc.toModel(), nil
}

// EnsureList implements ranking.ListStore.
func (s *MongoStore) EnsureList(ctx context.Context, key model.ListKey) (list model.List, err error) {
	defer observe(backendMongo, "ensure_list", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	doc, err := s.ensure(ctx, key)
	if err != nil {
		return model.List{}, err
	}
	return doc.toModel(), nil
}

// ensure returns the list document, upserting an empty one when absent.
// A concurrent upsert of the same list loses on the unique index and
// re-reads.
func (s *MongoStore) ensure(ctx context.Context, key model.ListKey) (listDoc, error) {
	doc, err := s.find(ctx, key)
	if err == nil || !errors.Is(err, ranking.ErrListNotFound) {
		return doc, err
	}

	_, err = s.lists.UpdateOne(ctx,
		bson.M{"user_id": key.Owner, "name": key.Name},
		bson.M{"$setOnInsert": bson.M{
			"user_id":    key.Owner,
			"name":       key.Name,
			"beers":      bson.A{},
			"created_at": s.opts.now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return listDoc{}, fmt.Errorf("upsert list: %w", err)
	}
	return s.find(ctx, key)
}

// InsertEntry implements ranking.ListStore.
func (s *MongoStore) InsertEntry(ctx context.Context, key model.ListKey, entry model.RatedEntry) (err error) {
	defer observe(backendMongo, "insert_entry", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	doc, err := s.ensure(ctx, key)
	if err != nil {
		return err
	}
	pushed, err := s.push(ctx, doc.ID, entryFromModel(entry))
	if err != nil {
		return err
	}
	if !pushed {
		return ranking.ErrDuplicateEntry
	}
	return nil
}

// push appends e unless an element with the same beer already exists.
func (s *MongoStore) push(ctx context.Context, listID primitive.ObjectID, e entryDoc) (bool, error) {
	res, err := s.lists.UpdateOne(ctx,
		bson.M{
			"_id":           listID,
			"beers.beer_id": bson.M{"$nin": storedForms(canonicalID(e.BeerID))},
		},
		bson.M{"$push": bson.M{"beers": e}},
	)
	if err != nil {
		return false, fmt.Errorf("push entry: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// EnsureEntry implements ranking.ListStore.
func (s *MongoStore) EnsureEntry(ctx context.Context, key model.ListKey, ref model.BeerRef, addedAt time.Time) (entry model.RatedEntry, err error) {
	defer observe(backendMongo, "ensure_entry", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	doc, err := s.find(ctx, key)
	if err != nil {
		return model.RatedEntry{}, err
	}
	if e, ok := doc.toModel().Find(ref); ok {
		return e, nil
	}

	entry = model.NewEntry(ref, addedAt)
	pushed, err := s.push(ctx, doc.ID, entryFromModel(entry))
	if err != nil {
		return model.RatedEntry{}, err
	}
	if pushed {
		return entry, nil
	}

	// Someone else inserted it in between.
	doc, err = s.find(ctx, key)
	if err != nil {
		return model.RatedEntry{}, err
	}
	if e, ok := doc.toModel().Find(ref); ok {
		return e, nil
	}
	return model.RatedEntry{}, ranking.ErrEntryNotFound
}

// PatchEntryRating implements ranking.ListStore as a compare-and-set on
// the element's current rating, retried a bounded number of times.
func (s *MongoStore) PatchEntryRating(ctx context.Context, key model.ListKey, ref model.BeerRef, rate ranking.RateFunc, count ranking.CountUpdate) (entry model.RatedEntry, err error) {
	defer observe(backendMongo, "patch_entry", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	for attempt := 0; attempt < s.opts.maxPatchRetries; attempt++ {
		doc, err := s.find(ctx, key)
		if err != nil {
			return model.RatedEntry{}, err
		}
		current, ok := doc.toModel().Find(ref)
		if !ok {
			return model.RatedEntry{}, ranking.ErrEntryNotFound
		}

		next := current
		next.Rating = rate(current.Rating)
		update := bson.M{"$set": bson.M{"beers.$.elo_score": next.Rating}}
		switch count {
		case ranking.IncrementCount:
			next.ComparisonCount++
			update["$inc"] = bson.M{"beers.$.comparisons": 1}
		case ranking.ResetCount:
			next.ComparisonCount = 0
			update["$set"].(bson.M)["beers.$.comparisons"] = 0
		}

		res, err := s.lists.UpdateOne(ctx,
			bson.M{
				"_id": doc.ID,
				"beers": bson.M{"$elemMatch": bson.M{
					"beer_id":   bson.M{"$in": storedForms(string(ref))},
					"elo_score": current.Rating,
				}},
			},
			update,
		)
		if err != nil {
			return model.RatedEntry{}, fmt.Errorf("patch entry: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return model.RatedEntry{}, ErrPatchContended
}

// RemoveEntry implements ranking.ListStore.
func (s *MongoStore) RemoveEntry(ctx context.Context, key model.ListKey, ref model.BeerRef) (err error) {
	defer observe(backendMongo, "remove_entry", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	doc, err := s.find(ctx, key)
	if err != nil {
		return err
	}
	forms := storedForms(string(ref))
	res, err := s.lists.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "beers.beer_id": bson.M{"$in": forms}},
		bson.M{"$pull": bson.M{"beers": bson.M{"beer_id": bson.M{"$in": forms}}}},
	)
	if err != nil {
		return fmt.Errorf("pull entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return ranking.ErrEntryNotFound
	}
	return nil
}

// Lists implements ranking.ListStore.
func (s *MongoStore) Lists(ctx context.Context, owner string) (out []model.List, err error) {
	defer observe(backendMongo, "lists", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	cur, err := s.lists.Find(ctx,
		bson.M{"user_id": bson.M{"$in": storedForms(owner)}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find lists: %w", err)
	}
	var docs []listDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode lists: %w", err)
	}
	out = make([]model.List, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// rankedRow is one output row of the ranked-view pipeline. Beer is nil
// for a list with no entries.
type rankedRow struct {
	Beer *entryDoc `bson:"beer"`
}

// Ranked implements Store with an aggregation that unwinds the list's
// entries and sorts them by rating. Ties are ordered by canonical ref here,
// since stored ids may mix types.
func (s *MongoStore) Ranked(ctx context.Context, key model.ListKey) (out []model.RatedEntry, err error) {
	defer observe(backendMongo, "ranked", time.Now(), &err)
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: listFilter(key)}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$unwind", Value: bson.M{"path": "$beers", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "beers.elo_score", Value: -1}}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "beer": "$beers"}}},
	}
	cur, err := s.lists.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate ranked: %w", err)
	}
	var rows []rankedRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode ranked: %w", err)
	}
	if len(rows) == 0 {
		return nil, ranking.ErrListNotFound
	}

	out = make([]model.RatedEntry, 0, len(rows))
	for _, r := range rows {
		if r.Beer != nil {
			out = append(out, r.Beer.toModel())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].BeerRef < out[j].BeerRef
	})
	return out, nil
}

// CountLists implements Store.
func (s *MongoStore) CountLists(ctx context.Context) (int, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	n, err := s.lists.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count lists: %w", err)
	}
	return int(n), nil
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
