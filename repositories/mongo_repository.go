package repositories

import (
	"context"
	"errors"

	"villa-api/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const villaCollection = "villas"

// case-insensitive comparison for name lookups
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// mongoRepository stores each villa as a document whose _id is the villa ID.
type mongoRepository struct {
	villas *mongo.Collection
}

// NewMongoRepository creates a repository over the villas collection of db.
func NewMongoRepository(db *mongo.Database) VillaRepository {
	return &mongoRepository{villas: db.Collection(villaCollection)}
}

// NewMongoClient connects and pings the server at uri.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// List returns all villas sorted by _id.
func (r *mongoRepository) List(ctx context.Context) ([]domain.Villa, error) {
	cursor, err := r.villas.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var villas []domain.Villa
	if err := cursor.All(ctx, &villas); err != nil {
		return nil, err
	}
	return villas, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id uint) (*domain.Villa, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) FindByName(ctx context.Context, name string) (*domain.Villa, error) {
	return r.findOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(nameCollation))
}

// Add inserts villa as a new document. Only _id is a unique index, so the
// name is checked with a query first.
func (r *mongoRepository) Add(ctx context.Context, villa *domain.Villa) error {
	if err := r.nameTaken(ctx, villa); err != nil {
		return err
	}
	_, err := r.villas.InsertOne(ctx, villa)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

// Update replaces the document with the villa's _id.
func (r *mongoRepository) Update(ctx context.Context, villa *domain.Villa) error {
	if err := r.nameTaken(ctx, villa); err != nil {
		return err
	}
	result, err := r.villas.ReplaceOne(ctx, bson.M{"_id": villa.ID}, villa)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrVillaNotFound
	}
	return nil
}

func (r *mongoRepository) Remove(ctx context.Context, id uint) error {
	result, err := r.villas.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrVillaNotFound
	}
	return nil
}

func (r *mongoRepository) nameTaken(ctx context.Context, villa *domain.Villa) error {
	filter := bson.M{"name": villa.Name, "_id": bson.M{"$ne": villa.ID}}
	_, err := r.findOne(ctx, filter, options.FindOne().SetCollation(nameCollation))
	switch {
	case errors.Is(err, ErrVillaNotFound):
		return nil
	case err != nil:
		return err
	}
	return ErrDuplicateName
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Villa, error) {
	var villa domain.Villa
	err := r.villas.FindOne(ctx, filter, opts...).Decode(&villa)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVillaNotFound
		}
		return nil, err
	}
	return &villa, nil
}
