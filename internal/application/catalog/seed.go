package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JulianR23/Vertex-Store/internal/domain/product"
)

type seedItem struct {
	Name        string
	Description string
	ImageURL    string
	Price       int64
	Stock       int
}

var defaultCatalog = []seedItem{
	{
		Name:        "AirPods Pro (2nd Generation)",
		Description: "Immersive audio experience with Active Noise Cancellation. Features Adaptive Transparency, Personalized Spatial Audio with dynamic head tracking, and up to 30 hours of battery life with the MagSafe Charging Case. Powered by the Apple H2 chip.",
		ImageURL:    "https://vertex-store-assets.s3.us-east-2.amazonaws.com/airpodsPro-2gen.jpg",
		Price:       110_000_000,
		Stock:       10,
	},
	{
		Name:        "AirPods (3rd Generation)",
		Description: "Spatial Audio with dynamic head tracking brings music to life around you. Contoured design with shorter stem. Force sensor controls. Water-resistant design. Up to 6 hours of listening time with one charge.",
		ImageURL:    "https://vertex-store-assets.s3.us-east-2.amazonaws.com/airpods-3gen.jpg",
		Price:       95_000_000,
		Stock:       15,
	},
	{
		Name:        "AirPods Max",
		Description: "Over-ear headphones with high-fidelity audio, Active Noise Cancellation, and Transparency mode. Premium acoustic design with computational audio. Up to 20 hours of listening with ANC and spatial audio enabled.",
		ImageURL:    "https://vertex-store-assets.s3.us-east-2.amazonaws.com/airpodsMax.jpg",
		Price:       200_000_000,
		Stock:       5,
	},
}

// ProductID derives a stable id from the product name so re-seeding updates the
// same row.
func ProductID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vertex-store/products/"+name)).String()
}

// Seed upserts the default catalog. Existing rows keep their stock.
func Seed(ctx context.Context, products product.Repository) ([]*product.Product, error) {
	out := make([]*product.Product, 0, len(defaultCatalog))
	for _, item := range defaultCatalog {
		p, err := product.New(ProductID(item.Name), item.Name, item.Description, item.ImageURL, item.Price, item.Stock)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", item.Name, err)
		}
		stored, err := products.Upsert(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", item.Name, err)
		}
		out = append(out, stored)
	}
	return out, nil
}
