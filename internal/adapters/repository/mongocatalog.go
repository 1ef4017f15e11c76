package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// beerDoc is one document of the beers collection.
type beerDoc struct {
	ID          any       `bson:"_id"`
	Name        string    `bson:"name"`
	Brewery     string    `bson:"brewery"`
	Type        string    `bson:"type"`
	ABV         *float64  `bson:"abv,omitempty"`
	IBU         *int      `bson:"ibu,omitempty"`
	Description string    `bson:"description,omitempty"`
	ImageURL    string    `bson:"image_url,omitempty"`
	CreatedAt   time.Time `bson:"created_at,omitempty"`
}

func (d beerDoc) toModel() model.Beer {
	return model.Beer{
		Ref:         model.BeerRef(canonicalID(d.ID)),
		Name:        d.Name,
		Brewery:     d.Brewery,
		Type:        d.Type,
		ABV:         d.ABV,
		IBU:         d.IBU,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoCatalog is a CatalogStore over the beers collection. New beers get
// ObjectIDs; refs handed out are their hex strings.
type MongoCatalog struct {
	db    *MongoDB
	beers *mongo.Collection
	opts  mongoOptions
}

// NewMongoCatalog builds a catalog on db.
func NewMongoCatalog(db *MongoDB, opts ...MongoOption) (*MongoCatalog, error) {
	if db == nil {
		return nil, ErrNilClient
	}
	o := defaultMongoOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MongoCatalog{db: db, beers: db.Collection(o.beersCollection), opts: o}, nil
}

// EnsureIndexes creates the case-insensitive unique (name, brewery) index.
func (c *MongoCatalog) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()
	_, err := c.beers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "brewery", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("name_brewery").
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return fmt.Errorf("create beer index: %w", err)
	}
	return nil
}

// ResolveBeer implements ranking.Catalog.
func (c *MongoCatalog) ResolveBeer(ctx context.Context, ref model.BeerRef) (b model.Beer, err error) {
	defer observe(backendMongo, "resolve_beer", time.Now(), &err)
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()

	var doc beerDoc
	err = c.beers.FindOne(ctx, bson.M{"_id": bson.M{"$in": storedForms(string(ref))}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Beer{}, ranking.ErrBeerNotFound
	}
	if err != nil {
		return model.Beer{}, fmt.Errorf("find beer: %w", err)
	}
	return doc.toModel(), nil
}

// ResolveBeers implements ranking.Catalog.
func (c *MongoCatalog) ResolveBeers(ctx context.Context, refs []model.BeerRef) (out map[model.BeerRef]model.Beer, err error) {
	defer observe(backendMongo, "resolve_beers", time.Now(), &err)
	out = make(map[model.BeerRef]model.Beer, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()

	docs, err := c.findAll(ctx, bson.M{"_id": bson.M{"$in": storedFormsOf(refs)}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		b := d.toModel()
		out[b.Ref] = b
	}
	return out, nil
}

// SearchBeers implements CatalogStore.
func (c *MongoCatalog) SearchBeers(ctx context.Context, q SearchQuery) (out []model.Beer, err error) {
	defer observe(backendMongo, "search_beers", time.Now(), &err)
	if q.Limit < 1 {
		return nil, ErrInvalidLimit
	}
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if text := strings.TrimSpace(q.Text); text != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"brewery": rx},
		}
	}
	if typ := strings.TrimSpace(q.Type); typ != "" {
		filter["type"] = exactFold(typ)
	}

	docs, err := c.findAll(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "brewery", Value: 1}}).
		SetLimit(int64(q.Limit)))
	if err != nil {
		return nil, err
	}
	out = make([]model.Beer, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// AddBeer implements CatalogStore.
func (c *MongoCatalog) AddBeer(ctx context.Context, in model.NewBeer) (b model.Beer, err error) {
	defer observe(backendMongo, "add_beer", time.Now(), &err)
	in, err = normalizeNewBeer(in)
	if err != nil {
		return model.Beer{}, err
	}
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()

	n, err := c.beers.CountDocuments(ctx, bson.M{
		"name":    exactFold(in.Name),
		"brewery": exactFold(in.Brewery),
	}, options.Count().SetLimit(1))
	if err != nil {
		return model.Beer{}, fmt.Errorf("check duplicate beer: %w", err)
	}
	if n > 0 {
		return model.Beer{}, ranking.ErrDuplicateBeer
	}

	doc := beerDoc{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Brewery:     in.Brewery,
		Type:        in.Type,
		ABV:         in.ABV,
		IBU:         in.IBU,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   c.opts.now().UTC(),
	}
	if _, err := c.beers.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Beer{}, ranking.ErrDuplicateBeer
		}
		return model.Beer{}, fmt.Errorf("insert beer: %w", err)
	}
	return doc.toModel(), nil
}

// CountBeers implements CatalogStore.
func (c *MongoCatalog) CountBeers(ctx context.Context) (int, error) {
	ctx, cancel := c.db.withTimeout(ctx)
	defer cancel()
	n, err := c.beers.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count beers: %w", err)
	}
	return int(n), nil
}

func (c *MongoCatalog) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]beerDoc, error) {
	cur, err := c.beers.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find beers: %w", err)
	}
	var docs []beerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode beers: %w", err)
	}
	return docs, nil
}

// exactFold matches s exactly, ignoring case.
func exactFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
