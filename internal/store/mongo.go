package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/notes/internal/apperr"
	"github.com/starford/notes/internal/models"
)

// noteDocument is the BSON shape of a note.
type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Tags      []string           `bson:"tags"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d noteDocument) note() models.Note {
	return models.Note{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		Tags:      models.NonNil(d.Tags),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// Mongo implements Gateway on top of a MongoDB collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongo wraps an existing collection. The caller keeps ownership of the
// client unless it is passed as well.
func NewMongo(client *mongo.Client, collection *mongo.Collection) *Mongo {
	return &Mongo{client: client, collection: collection}
}

// ConnectMongo creates a client for uri and selects database/collection.
// The driver connects lazily, so an unreachable server is not an error here.
func ConnectMongo(ctx context.Context, uri, database, collection string, selectionTimeout time.Duration) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(selectionTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	return NewMongo(client, client.Database(database).Collection(collection)), nil
}

var byUpdatedDesc = bson.D{{Key: "updatedAt", Value: -1}}

// Find returns every note, or those carrying f.Tag, newest first.
func (m *Mongo) Find(ctx context.Context, f models.Filter) ([]models.Note, error) {
	filter := bson.M{}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	cursor, err := m.collection.Find(ctx, filter, options.Find().SetSort(byUpdatedDesc))
	if err != nil {
		return nil, fmt.Errorf("store: mongo find: %w", err)
	}
	var docs []noteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: mongo decode: %w", err)
	}
	out := make([]models.Note, len(docs))
	for i, d := range docs {
		out[i] = d.note()
	}
	return out, nil
}

// Get returns a single note by its hex ObjectID.
func (m *Mongo) Get(ctx context.Context, id string) (*models.Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	var doc noteDocument
	if err := m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr("find one", err)
	}
	n := doc.note()
	return &n, nil
}

// Insert stores n under a freshly generated ObjectID.
func (m *Mongo) Insert(ctx context.Context, n *models.Note) error {
	doc := noteDocument{
		ID:        primitive.NewObjectID(),
		Title:     n.Title,
		Content:   n.Content,
		Tags:      models.NonNil(n.Tags),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("store: mongo insert: %w", err)
	}
	n.ID = doc.ID.Hex()
	n.Tags = doc.Tags
	return nil
}

// Update applies p with a single $set and returns the updated document.
func (m *Mongo) Update(ctx context.Context, id string, p models.NotePatch, updatedAt time.Time) (*models.Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	set := bson.M{"updatedAt": updatedAt}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	if p.Tags != nil {
		set["tags"] = models.NonNil(*p.Tags)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc noteDocument
	err = m.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mongoErr("update", err)
	}
	n := doc.note()
	return &n, nil
}

// Delete removes a note and returns the removed document.
func (m *Mongo) Delete(ctx context.Context, id string) (*models.Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	var doc noteDocument
	if err := m.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr("delete", err)
	}
	n := doc.note()
	return &n, nil
}

// Ping checks that a server is selectable.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("store: mongo ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func mongoErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("store: mongo %s: %w", op, err)
}
