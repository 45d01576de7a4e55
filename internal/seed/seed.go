// Package seed writes demo documents into an empty store.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/estatein/internal/docstore"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

// Fixture is the demo content of one collection, written in order.
type Fixture struct {
	Collection string
	Documents  []map[string]any
}

// Fixtures are the figures and texts the public site showed before any
// admin edited them.
var Fixtures = []Fixture{
	{Collection: "stats", Documents: []map[string]any{
		{"title": "Happy Customers", "value": "200", "description": "Clients who found their home with Estatein", "icon": "fa-solid fa-users"},
		{"title": "Properties For Clients", "value": "10k+", "description": "Listings across apartments, villas, stores and lands", "icon": "fa-solid fa-building"},
		{"title": "Years of Experience", "value": "16+", "description": "Serving buyers, sellers and investors since 2008", "icon": "fa-solid fa-star"},
	}},
	{Collection: "team", Documents: []map[string]any{
		{"name": "Max Mitchell", "position": "Founder"},
		{"name": "Sarah Johnson", "position": "Chief Real Estate Officer"},
		{"name": "David Brown", "position": "Head of Property Management"},
		{"name": "Michael Turner", "position": "Legal Counsel"},
	}},
	{Collection: "reviews", Documents: []map[string]any{
		{"name": "Wade Warren", "country": "USA", "city": "California", "title": "Exceptional Service!", "rating": 5,
			"description": "Our experience with Estatein was outstanding. Their team's dedication and professionalism made finding our dream home a breeze."},
		{"name": "Emelie Thomson", "country": "USA", "city": "Florida", "title": "Efficient and Reliable", "rating": 5,
			"description": "Estatein provided us with top-notch service. They helped us sell our property quickly and at a great price."},
		{"name": "John Mans", "country": "USA", "city": "Nevada", "title": "Trusted Advisors", "rating": 4,
			"description": "The Estatein team guided us through the entire buying process. Their knowledge and commitment are unmatched."},
	}},
	{Collection: "faqs", Documents: []map[string]any{
		{"question": "How do I search for properties on Estatein?", "answer": "Browse the Properties page and filter by type, location and price range."},
		{"question": "What documents do I need to sell my property through Estatein?", "answer": "Proof of ownership, a valid ID and any recent inspection reports."},
		{"question": "How can I contact an Estatein agent?", "answer": "Call +966112345678, email support@esty.com or visit one of our offices."},
	}},
	{Collection: "officeLocations", Documents: []map[string]any{
		{"title": "Main Headquarters", "locationDetails": "123 Estatein Plaza, City Center, Metropolis",
			"description": "Our main headquarters serve as the heart of Estatein.",
			"contactPhone": "+966112345678", "contactEmail": "support@esty.com", "contactLocation": "Metropolis"},
	}},
}

// Run writes every fixture whose collection is empty and returns the
// number of documents created. Collections that already hold documents are
// left alone, so running it twice is harmless.
func Run(ctx context.Context, store docstore.Store, reg *schema.Registry) (int, error) {
	created := 0
	for _, fx := range Fixtures {
		coll := reg.Collection(fx.Collection)
		if coll == nil {
			return created, fmt.Errorf("seeding %s: unknown collection", fx.Collection)
		}
		existing, err := store.List(ctx, fx.Collection, types.DefaultOrder)
		if err != nil {
			return created, fmt.Errorf("checking %s: %w", fx.Collection, err)
		}
		if len(existing) > 0 {
			log.Info().Str("collection", fx.Collection).Int("count", len(existing)).Msg("already seeded, skipping")
			continue
		}
		for _, fields := range fx.Documents {
			if err := coll.CheckRequired(fields); err != nil {
				return created, fmt.Errorf("seeding %s: %w", fx.Collection, err)
			}
			if err := coll.Validate(fields); err != nil {
				return created, fmt.Errorf("seeding %s: %w", fx.Collection, err)
			}
			if _, err := store.Create(ctx, fx.Collection, types.CloneFields(fields)); err != nil {
				return created, fmt.Errorf("seeding %s: %w", fx.Collection, err)
			}
			created++
		}
		log.Info().Str("collection", fx.Collection).Int("count", len(fx.Documents)).Msg("seeded")
	}
	return created, nil
}
