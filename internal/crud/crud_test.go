package crud

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/estatein/internal/docstore"
	"github.com/matthewbaird/estatein/internal/media"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

type fixture struct {
	svc      *Service
	store    *docstore.MemoryStore
	uploader *media.MemoryUploader
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg, err := schema.Load("unsigned_upload")
	require.NoError(t, err)
	store := docstore.NewMemoryStore()
	up := media.NewMemoryUploader("unsigned_upload")
	return fixture{svc: NewService(reg, store, up), store: store, uploader: up}
}

func img(name string) media.File {
	return media.File{Name: name, ContentType: "image/jpeg", Body: strings.NewReader("data-" + name)}
}

func propertyInput() map[string]string {
	return map[string]string{
		"name":            "Seaside Serenity Villa",
		"type":            "Villas",
		"location":        "Malibu, California",
		"price":           "1250000",
		"tag_description": "A stunning 4-bedroom villa",
		"bedrooms":        "4",
	}
}

func count(t *testing.T, f fixture, collection string) int {
	t.Helper()
	docs, err := f.store.List(context.Background(), collection, types.DefaultOrder)
	require.NoError(t, err)
	return len(docs)
}

func TestAdd_NImagesInUploadOrder(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)

	require.NoError(t, d.SetFields(propertyInput()))
	require.NoError(t, d.AttachImages("imageUrls", img("front.jpg"), img("pool.jpg")))
	require.NoError(t, d.AttachImages("imageUrls", img("kitchen.jpg")))

	doc, err := d.Submit(context.Background())
	require.NoError(t, err)

	uploads := f.uploader.Uploads()
	require.Len(t, uploads, 3)
	want := []string{uploads[0].URL, uploads[1].URL, uploads[2].URL}
	assert.Equal(t, want, doc.Strings("imageUrls"))
	assert.Equal(t, []string{"front.jpg", "pool.jpg", "kitchen.jpg"},
		[]string{uploads[0].Name, uploads[1].Name, uploads[2].Name})
	for _, u := range uploads {
		assert.Equal(t, "properties", u.Folder)
		assert.Equal(t, "unsigned_upload", u.Profile)
	}

	assert.Equal(t, 1250000.0, doc.Fields["price"])
	assert.Equal(t, 4.0, doc.Fields["bedrooms"])
	assert.Equal(t, StateClosed, d.State())
}

func TestAdd_FailedUploadPersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.uploader.FailOn = func(file media.File) error {
		if file.Name == "broken.jpg" {
			return errors.New("upload preset rejected")
		}
		return nil
	}
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(propertyInput()))
	require.NoError(t, d.AttachImages("imageUrls", img("ok.jpg"), img("broken.jpg"), img("never.jpg")))

	_, err = d.Submit(context.Background())
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "broken.jpg", upErr.File)

	assert.Equal(t, 0, count(t, f, "properties"), "no partial document")
	assert.Equal(t, 2, f.uploader.Calls(), "remaining batch abandoned")
	assert.Equal(t, StateOpen, d.State(), "form stays open")
	assert.Len(t, d.Pending("imageUrls"), 3, "input kept for retry")
	assert.Equal(t, "Seaside Serenity Villa", d.Value("name"))
}

func TestAdd_PropertyRequiresImage(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(propertyInput()))

	_, err = d.Submit(context.Background())
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "imageUrls", verr.Problems[0].Field)
	assert.Equal(t, 0, f.uploader.Calls())
	assert.Equal(t, StateOpen, d.State())
}

func TestAdd_InvalidInputUploadsNothing(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("reviews")
	require.NoError(t, err)

	require.NoError(t, d.SetFields(map[string]string{
		"name": "Wade Warren", "country": "USA", "city": "California",
		"title": "Exceptional Service!", "rating": "9",
	}))
	require.NoError(t, d.AttachImages("profileimage", img("wade.jpg")))

	_, err = d.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.uploader.Calls())
	assert.Equal(t, 0, count(t, f, "reviews"))
}

func TestAdd_CoercionErrorsReported(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)

	in := propertyInput()
	in["price"] = "a lot"
	err = d.SetFields(in)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Problems[0].Field)
	assert.Equal(t, "a lot", d.Value("price"))

	require.NoError(t, d.AttachImages("imageUrls", img("a.jpg")))
	_, err = d.Submit(context.Background())
	require.ErrorAs(t, err, &verr)

	require.NoError(t, d.SetField("price", "990000"))
	_, err = d.Submit(context.Background())
	require.NoError(t, err)
}

func TestAdd_FeaturesFilteredOfBlanks(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(propertyInput()))
	require.NoError(t, d.AttachImages("imageUrls", img("a.jpg")))

	require.NoError(t, d.AddEntry("features"))
	require.NoError(t, d.SetEntry("features", 0, " Private pool "))
	require.NoError(t, d.AddEntry("features"))
	require.NoError(t, d.AddEntry("features"))
	require.NoError(t, d.SetEntry("features", 2, "Ocean view"))
	require.NoError(t, d.AddEntry("features"))
	require.NoError(t, d.RemoveEntry("features", 3))
	assert.Equal(t, []string{" Private pool ", "", "Ocean view"}, d.Array("features"))

	doc, err := d.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Private pool", "Ocean view"}, doc.Strings("features"))
}

func TestAdd_UnknownFields(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("faqs")
	require.NoError(t, err)

	var fe *schema.FieldError
	assert.ErrorAs(t, d.SetField("owner", "x"), &fe)
	assert.ErrorAs(t, d.AddEntry("features"), &fe)
	assert.ErrorAs(t, d.AttachImages("imageUrls", img("a.jpg")), &fe)
}

func TestAdd_SingleImageKeepsLast(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("team")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(map[string]string{"name": "Max Mitchell", "position": "Founder"}))
	require.NoError(t, d.AttachImages("profileImage", img("old.jpg"), img("new.jpg")))

	doc, err := d.Submit(context.Background())
	require.NoError(t, err)
	uploads := f.uploader.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "new.jpg", uploads[0].Name)
	assert.Equal(t, uploads[0].URL, doc.String("profileImage"))
	assert.Equal(t, "team", uploads[0].Folder)
}

func TestAdd_DoubleSubmitRejected(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.NewAdd("faqs")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(map[string]string{"question": "Q?", "answer": "A."}))

	_, err = d.Submit(context.Background())
	require.NoError(t, err)

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.SetField("question", "again"), ErrClosed)
	assert.Equal(t, 1, count(t, f, "faqs"))
}

func TestAdd_SubmittingBlocksChanges(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})
	f.uploader.FailOn = func(media.File) error {
		close(started)
		<-release
		return nil
	}
	d, err := f.svc.NewAdd("properties")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(propertyInput()))
	require.NoError(t, d.AttachImages("imageUrls", img("a.jpg")))

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-started

	assert.Equal(t, StateSubmitting, d.State())
	assert.ErrorIs(t, d.SetField("name", "x"), ErrSubmitting)
	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)

	// Closing mid-submit does not cancel the write.
	require.NoError(t, d.Cancel())
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("submit did not finish")
	}
	assert.Equal(t, StateClosed, d.State())
	assert.Equal(t, 1, count(t, f, "properties"))
}

func seedProperty(t *testing.T, f fixture, images ...string) types.Document {
	t.Helper()
	doc, err := f.store.Create(context.Background(), "properties", map[string]any{
		"name": "Metropolitan Haven", "type": "Apartments", "location": "Downtown",
		"price": 650000.0, "tag_description": "City living",
		"imageUrls": images, "features": []string{"Gym"},
	})
	require.NoError(t, err)
	return doc
}

func TestEdit_UntouchedImageListPreserved(t *testing.T) {
	f := newFixture(t)
	images := []string{"https://media.test/p/1.jpg", "https://media.test/p/2.jpg", "https://media.test/p/3.jpg"}
	orig := seedProperty(t, f, images...)

	d, err := f.svc.NewEdit(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "650000", d.Value("price"))
	require.NoError(t, d.SetField("price", "600000"))

	doc, err := d.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, images, doc.Strings("imageUrls"))
	assert.Equal(t, 600000.0, doc.Fields["price"])
	assert.Equal(t, []string{"Gym"}, doc.Strings("features"))
	require.NotNil(t, doc.UpdatedAt)
	assert.Equal(t, 0, f.uploader.Calls())
}

func TestEdit_RemovalNotPersistedBeforeSubmit(t *testing.T) {
	f := newFixture(t)
	images := []string{"https://media.test/p/1.jpg", "https://media.test/p/2.jpg"}
	orig := seedProperty(t, f, images...)
	ctx := context.Background()

	d, err := f.svc.NewEdit(ctx, "properties", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.RemoveImage("imageUrls", images[0]))
	assert.Equal(t, images[1:], d.Images("imageUrls"))

	stored, err := f.store.Get(ctx, "properties", orig.ID)
	require.NoError(t, err)
	assert.Equal(t, images, stored.Strings("imageUrls"), "store unchanged before submit")

	doc, err := d.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, images[1:], doc.Strings("imageUrls"))
}

func TestEdit_RemoveThenCancelLeavesDocument(t *testing.T) {
	f := newFixture(t)
	images := []string{"https://media.test/p/1.jpg"}
	orig := seedProperty(t, f, images...)
	ctx := context.Background()

	d, err := f.svc.NewEdit(ctx, "properties", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.RemoveImage("imageUrls", images[0]))
	require.NoError(t, d.Cancel())

	stored, err := f.store.Get(ctx, "properties", orig.ID)
	require.NoError(t, err)
	assert.Equal(t, images, stored.Strings("imageUrls"))
	assert.Nil(t, stored.UpdatedAt)
}

func TestEdit_NewImagesAppendedInOrder(t *testing.T) {
	f := newFixture(t)
	orig := seedProperty(t, f, "https://media.test/p/1.jpg")

	d, err := f.svc.NewEdit(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.AttachImages("imageUrls", img("2.jpg"), img("3.jpg")))

	doc, err := d.Submit(context.Background())
	require.NoError(t, err)
	uploads := f.uploader.Uploads()
	assert.Equal(t, []string{"https://media.test/p/1.jpg", uploads[0].URL, uploads[1].URL}, doc.Strings("imageUrls"))
}

func TestEdit_FailedUploadLeavesDocument(t *testing.T) {
	f := newFixture(t)
	orig := seedProperty(t, f, "https://media.test/p/1.jpg")
	f.uploader.FailOn = func(media.File) error { return errors.New("offline") }

	d, err := f.svc.NewEdit(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.SetField("name", "Renamed"))
	require.NoError(t, d.AttachImages("imageUrls", img("2.jpg")))

	_, err = d.Submit(context.Background())
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)

	stored, err := f.store.Get(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "Metropolitan Haven", stored.String("name"))
	assert.Equal(t, StateOpen, d.State())
}

func TestEdit_RatingParsedAsInt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig, err := f.store.Create(ctx, "reviews", map[string]any{"name": "Emelie", "title": "Great", "rating": 4.0})
	require.NoError(t, err)

	d, err := f.svc.NewEdit(ctx, "reviews", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.SetField("rating", "5"))
	doc, err := d.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Fields["rating"])

	d, err = f.svc.NewEdit(ctx, "reviews", orig.ID)
	require.NoError(t, err)
	assert.Error(t, d.SetField("rating", "4.5"))
}

func TestEdit_ClearedNumberRemovesField(t *testing.T) {
	f := newFixture(t)
	orig := seedProperty(t, f, "https://media.test/p/1.jpg")

	d, err := f.svc.NewEdit(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	require.NoError(t, d.SetField("price", ""))
	doc, err := d.Submit(context.Background())
	require.NoError(t, err)
	_, ok := doc.Fields["price"]
	assert.False(t, ok)
}

func TestEdit_DeletedMeanwhile(t *testing.T) {
	f := newFixture(t)
	orig := seedProperty(t, f, "https://media.test/p/1.jpg")

	d, err := f.svc.NewEdit(context.Background(), "properties", orig.ID)
	require.NoError(t, err)
	f.svc.Delete(context.Background(), "properties", orig.ID)

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Equal(t, StateOpen, d.State())
}

func TestService_DeleteAndDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := seedProperty(t, f, "https://media.test/p/1.jpg")

	detail, err := f.svc.Detail(ctx, "properties", orig.ID)
	require.NoError(t, err)

	f.svc.Delete(ctx, "properties", orig.ID)
	f.svc.Delete(ctx, "properties", orig.ID)

	docs, err := f.svc.List(ctx, "properties", types.Order{})
	require.NoError(t, err)
	assert.Empty(t, docs, "gone from the next listing")
	assert.Equal(t, "Metropolitan Haven", detail.Title, "already fetched detail unaffected")

	_, err = f.svc.Detail(ctx, "properties", orig.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestService_UnknownCollection(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.NewAdd("users")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = f.svc.List(context.Background(), "users", types.DefaultOrder)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(modalTransitions, StateOpen, StateSubmitting))
	assert.NoError(t, ValidateTransition(modalTransitions, StateSubmitting, StateOpen))
	assert.Error(t, ValidateTransition(modalTransitions, StateClosed, StateSubmitting))
	assert.Error(t, ValidateTransition(modalTransitions, "gone", StateOpen))
}
