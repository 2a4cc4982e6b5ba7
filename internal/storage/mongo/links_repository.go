package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/ysalameh/paywatch/internal/infrastructure/db"
	"github.com/ysalameh/paywatch/internal/processing/paylinks"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID             string     `bson:"_id"`
	OwnerID        string     `bson:"ownerId"`
	URL            string     `bson:"url"`
	AmountMinor    int64      `bson:"amountMinor"`
	Status         string     `bson:"status"`
	ErrorCode      string     `bson:"errorCode,omitempty"`
	TransactionRef string     `bson:"transactionRef,omitempty"`
	AmountDisplay  string     `bson:"amountDisplay,omitempty"`
	Archived       bool       `bson:"archived"`
	LastCheckedAt  *time.Time `bson:"lastCheckedAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection("payment_links")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "archived", Value: 1}},
			Options: options.Index().SetName("owner_archived"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *paylinks.Link) error {
	doc := linkDoc{
		ID:          link.ID,
		OwnerID:     link.OwnerID,
		URL:         link.URL,
		AmountMinor: link.AmountMinor,
		Status:      string(link.Status),
		Archived:    link.Archived,
		CreatedAt:   link.CreatedAt.UTC(),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *LinksRepository) ListActive(ctx context.Context, ownerID string) ([]*paylinks.Link, error) {
	filter := bson.M{"ownerId": ownerID, "archived": false}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*paylinks.Link
	for cursor.Next(ctx) {
		var doc linkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapLinkDoc(doc))
	}
	return out, cursor.Err()
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*paylinks.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, paylinks.ErrNotFound
	}

	return nil, err
}

// ApplyStatus writes one probe's classification atomically. Optional fields
// that the outcome did not carry keep their stored values.
func (r *LinksRepository) ApplyStatus(ctx context.Context, id string, in paylinks.ApplyStatusInput) (*paylinks.Link, error) {
	set := bson.M{
		"status":        string(in.Status),
		"lastCheckedAt": in.CheckedAt.UTC(),
	}
	unset := bson.M{}

	if in.Status == paylinks.StatusError {
		set["errorCode"] = in.ErrorCode
	} else {
		unset["errorCode"] = ""
	}
	if in.TransactionRef != nil {
		set["transactionRef"] = *in.TransactionRef
	}
	if in.AmountDisplay != nil {
		set["amountDisplay"] = *in.AmountDisplay
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc linkDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, paylinks.ErrNotFound
	}

	return nil, err
}

// SetURL renews the link: new target URL, status back to active, probe
// artifacts cleared.
func (r *LinksRepository) SetURL(ctx context.Context, id, ownerID, url string) (*paylinks.Link, error) {
	update := bson.M{
		"$set": bson.M{
			"url":    url,
			"status": string(paylinks.StatusActive),
		},
		"$unset": bson.M{
			"errorCode":      "",
			"transactionRef": "",
			"amountDisplay":  "",
		},
	}

	return r.updateOwned(ctx, id, ownerID, update)
}

func (r *LinksRepository) Archive(ctx context.Context, id, ownerID string) (*paylinks.Link, error) {
	update := bson.M{"$set": bson.M{"archived": true}}
	return r.updateOwned(ctx, id, ownerID, update)
}

func (r *LinksRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount == 0 {
		// Distinguish a missing link from someone else's link.
		if _, err := r.FindByID(ctx, id); err == nil {
			return false, paylinks.ErrNotOwner
		}
		return false, nil
	}
	return true, nil
}

// updateOwned applies an owner-scoped update and reports ErrNotOwner when
// the link exists under a different owner.
func (r *LinksRepository) updateOwned(ctx context.Context, id, ownerID string, update bson.M) (*paylinks.Link, error) {
	var doc linkDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "ownerId": ownerID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr == nil {
			return nil, paylinks.ErrNotOwner
		}
		return nil, paylinks.ErrNotFound
	}

	return nil, err
}

func mapLinkDoc(doc linkDoc) *paylinks.Link {
	link := &paylinks.Link{
		ID:             doc.ID,
		OwnerID:        doc.OwnerID,
		URL:            doc.URL,
		AmountMinor:    doc.AmountMinor,
		Status:         paylinks.Status(doc.Status),
		ErrorCode:      doc.ErrorCode,
		TransactionRef: doc.TransactionRef,
		AmountDisplay:  doc.AmountDisplay,
		Archived:       doc.Archived,
		CreatedAt:      doc.CreatedAt,
	}
	if doc.LastCheckedAt != nil {
		link.LastCheckedAt = *doc.LastCheckedAt
	}
	return link
}
