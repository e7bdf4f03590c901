package mongodb

import (
	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document field names match the existing "anuncios" collection.
const (
	fieldID        = "_id"
	fieldName      = "nombre"
	fieldPrice     = "precio"
	fieldForSale   = "venta"
	fieldTags      = "tags"
	fieldPhoto     = "foto"
	fieldCreatedAt = "created_at"
)

var documentFields = map[string]string{
	domain.FieldName:      fieldName,
	domain.FieldPrice:     fieldPrice,
	domain.FieldForSale:   fieldForSale,
	domain.FieldTags:      fieldTags,
	domain.FieldPhoto:     fieldPhoto,
	domain.FieldCreatedAt: fieldCreatedAt,
}

type listingDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"nombre"`
	Price     float64            `bson:"precio"`
	ForSale   bool               `bson:"venta"`
	Tags      []string           `bson:"tags"`
	Photo     *string            `bson:"foto,omitempty"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

type tagDocument struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

func toListingDocument(l *domain.Listing) *listingDocument {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return &listingDocument{
		Name:      l.Name,
		Price:     l.Price,
		ForSale:   l.ForSale,
		Tags:      tags,
		Photo:     l.Photo,
		CreatedAt: primitive.NewDateTimeFromTime(l.CreatedAt),
	}
}

func toDomainListing(d *listingDocument) *domain.Listing {
	return &domain.Listing{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		ForSale:   d.ForSale,
		Tags:      d.Tags,
		Photo:     d.Photo,
		CreatedAt: d.CreatedAt.Time().UTC(),
	}
}

func toDomainListings(docs []listingDocument) []*domain.Listing {
	out := make([]*domain.Listing, 0, len(docs))
	for i := range docs {
		out = append(out, toDomainListing(&docs[i]))
	}
	return out
}
