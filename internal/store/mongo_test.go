package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/starford/notes/internal/apperr"
	"github.com/starford/notes/internal/models"
	"github.com/starford/notes/internal/store"
	"github.com/starford/notes/internal/testutil"
)

func mockMongo(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func noteDoc(id primitive.ObjectID, title string, at time.Time, tags ...string) bson.D {
	arr := bson.A{}
	for _, tag := range tags {
		arr = append(arr, tag)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "content", Value: "body of " + title},
		{Key: "tags", Value: arr},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(at)},
		{Key: "updatedAt", Value: primitive.NewDateTimeFromTime(at)},
	}
}

func startedCommand(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil {
		mt.Fatalf("no %s command was sent", name)
	}
	if evt.CommandName != name {
		mt.Fatalf("command = %q, want %q", evt.CommandName, name)
	}
	return evt.Command
}

func TestMongo_FindSortsAndFiltersByTag(t *testing.T) {
	mt := mockMongo(t)

	mt.Run("all notes", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			noteDoc(newer, "new", base.Add(time.Minute), "x"),
			noteDoc(older, "old", base),
		))

		notes, err := m.Find(context.Background(), models.Filter{})
		if err != nil {
			mt.Fatalf("Find: %v", err)
		}
		if got, want := titles(notes), []string{"new", "old"}; !reflect.DeepEqual(got, want) {
			mt.Errorf("titles = %v, want %v", got, want)
		}
		if notes[0].ID != newer.Hex() {
			mt.Errorf("id = %q, want %q", notes[0].ID, newer.Hex())
		}
		if notes[1].Tags == nil || len(notes[1].Tags) != 0 {
			mt.Errorf("tags = %#v, want empty slice", notes[1].Tags)
		}
		if !notes[0].UpdatedAt.Equal(base.Add(time.Minute)) {
			mt.Errorf("updatedAt = %v", notes[0].UpdatedAt)
		}

		cmd := startedCommand(mt, "find")
		if dir := cmd.Lookup("sort", "updatedAt").AsInt64(); dir != -1 {
			mt.Errorf("sort updatedAt = %d, want -1", dir)
		}
		if _, err := cmd.Lookup("filter").Document().LookupErr("tags"); err == nil {
			mt.Error("unfiltered find should not constrain tags")
		}
	})

	mt.Run("by tag", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			noteDoc(primitive.NewObjectID(), "tagged", base, "a%41"),
		))

		notes, err := m.Find(context.Background(), models.Filter{Tag: "a%41"})
		if err != nil {
			mt.Fatalf("Find: %v", err)
		}
		if len(notes) != 1 {
			mt.Fatalf("len = %d, want 1", len(notes))
		}

		cmd := startedCommand(mt, "find")
		if tag := cmd.Lookup("filter", "tags").StringValue(); tag != "a%41" {
			mt.Errorf("filter tags = %q, want exact a%%41", tag)
		}
	})

	mt.Run("empty result", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		notes, err := m.Find(context.Background(), models.Filter{Tag: "none"})
		if err != nil {
			mt.Fatalf("Find: %v", err)
		}
		if notes == nil || len(notes) != 0 {
			mt.Errorf("Find = %#v, want empty non-nil slice", notes)
		}
	})
}

func TestMongo_Get(t *testing.T) {
	mt := mockMongo(t)

	mt.Run("found", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			noteDoc(id, "one", base, "x"),
		))

		got, err := m.Get(context.Background(), id.Hex())
		if err != nil {
			mt.Fatalf("Get: %v", err)
		}
		want := models.Note{
			ID:        id.Hex(),
			Title:     "one",
			Content:   "body of one",
			Tags:      []string{"x"},
			CreatedAt: base,
			UpdatedAt: base,
		}
		if !reflect.DeepEqual(*got, want) {
			mt.Errorf("Get = %+v, want %+v", *got, want)
		}

		cmd := startedCommand(mt, "find")
		if oid := cmd.Lookup("filter", "_id").ObjectID(); oid != id {
			mt.Errorf("filter _id = %s, want %s", oid.Hex(), id.Hex())
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := m.Get(context.Background(), primitive.NewObjectID().Hex())
		if !errors.Is(err, apperr.ErrNotFound) {
			mt.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("server error", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		_, err := m.Get(context.Background(), primitive.NewObjectID().Hex())
		if err == nil || errors.Is(err, apperr.ErrNotFound) {
			mt.Errorf("err = %v, want storage error", err)
		}
	})
}

func TestMongo_InsertAssignsObjectID(t *testing.T) {
	mt := mockMongo(t)

	mt.Run("insert", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		n := newNote("fresh", base)
		if err := m.Insert(context.Background(), n); err != nil {
			mt.Fatalf("Insert: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(n.ID); err != nil {
			mt.Errorf("id %q is not an ObjectID: %v", n.ID, err)
		}
		if n.Tags == nil || len(n.Tags) != 0 {
			mt.Errorf("tags = %#v, want empty slice", n.Tags)
		}
	})
}

func TestMongo_UpdateSetsOnlySuppliedFields(t *testing.T) {
	mt := mockMongo(t)

	mt.Run("partial", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		later := base.Add(time.Hour)
		after := noteDoc(id, "keep", base, "x")
		after[2].Value = "C"
		after[5].Value = primitive.NewDateTimeFromTime(later)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: after}))

		got, err := m.Update(context.Background(), id.Hex(), models.NotePatch{Content: testutil.StrPtr("C")}, later)
		if err != nil {
			mt.Fatalf("Update: %v", err)
		}
		if got.Title != "keep" || got.Content != "C" || !got.UpdatedAt.Equal(later) {
			mt.Errorf("Update = %+v", *got)
		}

		cmd := startedCommand(mt, "findAndModify")
		set := cmd.Lookup("update", "$set").Document()
		if v := set.Lookup("content").StringValue(); v != "C" {
			mt.Errorf("$set content = %q, want C", v)
		}
		if _, err := set.LookupErr("updatedAt"); err != nil {
			mt.Error("$set should always carry updatedAt")
		}
		for _, field := range []string{"title", "tags", "createdAt"} {
			if _, err := set.LookupErr(field); err == nil {
				mt.Errorf("$set should not touch %s", field)
			}
		}
		if !cmd.Lookup("new").Boolean() {
			mt.Error("update should return the document after modification")
		}
	})

	mt.Run("clear tags", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: noteDoc(id, "t", base)}))

		if _, err := m.Update(context.Background(), id.Hex(), models.NotePatch{Tags: testutil.TagsPtr()}, base); err != nil {
			mt.Fatalf("Update: %v", err)
		}

		cmd := startedCommand(mt, "findAndModify")
		tags, ok := cmd.Lookup("update", "$set", "tags").ArrayOK()
		if !ok {
			mt.Fatal("$set tags should be an array, not null")
		}
		if vals, _ := tags.Values(); len(vals) != 0 {
			mt.Errorf("$set tags = %v, want empty", vals)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := m.Update(context.Background(), primitive.NewObjectID().Hex(), models.NotePatch{Title: testutil.StrPtr("t")}, base)
		if !errors.Is(err, apperr.ErrNotFound) {
			mt.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestMongo_DeleteReturnsPriorState(t *testing.T) {
	mt := mockMongo(t)

	mt.Run("found", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: noteDoc(id, "gone", base, "z")}))

		deleted, err := m.Delete(context.Background(), id.Hex())
		if err != nil {
			mt.Fatalf("Delete: %v", err)
		}
		if deleted.ID != id.Hex() || deleted.Title != "gone" || !reflect.DeepEqual(deleted.Tags, []string{"z"}) {
			mt.Errorf("Delete = %+v", *deleted)
		}

		cmd := startedCommand(mt, "findAndModify")
		if !cmd.Lookup("remove").Boolean() {
			mt.Error("delete should send remove: true")
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		m := store.NewMongo(mt.Client, mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := m.Delete(context.Background(), primitive.NewObjectID().Hex())
		if !errors.Is(err, apperr.ErrNotFound) {
			mt.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

// The driver connects lazily, so malformed ids can be checked without a server.
func TestMongo_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	m, err := store.ConnectMongo(ctx, "mongodb://127.0.0.1:1/notes-test", "notes-test", "notes", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	if _, err := m.Get(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if _, err := m.Update(ctx, "nope", models.NotePatch{Title: testutil.StrPtr("x")}, time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if _, err := m.Delete(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestMongo_UnreachableIsStorageError(t *testing.T) {
	ctx := context.Background()
	m, err := store.ConnectMongo(ctx, "mongodb://127.0.0.1:1/notes-test", "notes-test", "notes", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	if _, err := m.Find(ctx, models.Filter{}); err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Find err = %v, want storage error", err)
	}
	if err := m.Ping(ctx); err == nil {
		t.Error("Ping should fail without a server")
	}
}

// TestMongo_Lifecycle runs against a real server when NOTES_TEST_MONGODB_URI is set.
func TestMongo_Lifecycle(t *testing.T) {
	uri := os.Getenv("NOTES_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("NOTES_TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	db := fmt.Sprintf("notes_test_%d", time.Now().UnixNano())
	m, err := store.ConnectMongo(ctx, uri, db, "notes", 5*time.Second)
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	a := newNote("a", base, "x")
	b := newNote("b", base.Add(time.Minute), "y", "x")
	mustInsert(t, m, a)
	mustInsert(t, m, b)

	got, err := m.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("Get = %+v, want %+v", got, a)
	}

	all, err := m.Find(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got, want := titles(all), []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	tagged, err := m.Find(ctx, models.Filter{Tag: "y"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != b.ID {
		t.Errorf("tag y = %v, want only b", titles(tagged))
	}

	later := base.Add(time.Hour)
	updated, err := m.Update(ctx, a.ID, models.NotePatch{Content: testutil.StrPtr("C")}, later)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "a" || updated.Content != "C" || !updated.UpdatedAt.Equal(later) {
		t.Errorf("Update = %+v", *updated)
	}

	deleted, err := m.Delete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !reflect.DeepEqual(deleted, updated) {
		t.Errorf("Delete = %+v, want %+v", deleted, updated)
	}

	if _, err := m.Get(ctx, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
}
