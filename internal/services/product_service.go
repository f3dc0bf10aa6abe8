package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
)

type ProductService struct {
	db core.DbClient
}

func NewProductService(db core.DbClient) *ProductService {
	return &ProductService{db: db}
}

// GetProducts lists the catalog, newest first.
func (s *ProductService) GetProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]models.Product, 0, len(rows))
	for i := range rows {
		out = append(out, toProduct(&rows[i]))
	}
	return out, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	row, err := toProductRow(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.InsertProduct(ctx, row); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	p := toProduct(row)
	return &p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	row, err := toProductRow(in)
	if err != nil {
		return nil, err
	}
	row.ID = id
	if err := s.db.UpdateProduct(ctx, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	p := toProduct(row)
	return &p, nil
}

// DeleteProduct does not check that the product exists.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.db.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func toProduct(r *models.ProductRow) models.Product {
	links := map[string]string{}
	if r.ProductURL != "" {
		links[models.MarketplaceAmazon] = r.ProductURL
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Product{
		ID:             r.ID,
		Name:           r.Name,
		Brand:          r.Brand,
		Price:          FormatPrice(r.Price),
		Image:          r.ImageURL,
		Description:    r.Description,
		Tags:           tags,
		AffiliateLinks: links,
	}
}

func toProductRow(in models.ProductInput) (*models.ProductRow, error) {
	name := strings.TrimSpace(in.Name)
	brand := strings.TrimSpace(in.Brand)
	if name == "" {
		return nil, Invalid("name", "Product name is required.")
	}
	if brand == "" {
		return nil, Invalid("brand", "Brand is required.")
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	var productURL string
	for market, url := range in.AffiliateLinks {
		if market != models.MarketplaceAmazon {
			return nil, Invalid("affiliateLinks", "Only Amazon affiliate links are supported.")
		}
		productURL = strings.TrimSpace(url)
	}
	return &models.ProductRow{
		Name:        name,
		Brand:       brand,
		Price:       price,
		ImageURL:    strings.TrimSpace(in.Image),
		Description: strings.TrimSpace(in.Description),
		Tags:        cleanTags(in.Tags),
		ProductURL:  productURL,
	}, nil
}

// RelatedProducts keeps the products sharing at least one tag with tags.
func RelatedProducts(products []models.Product, tags []string) []models.Product {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		for _, t := range p.Tags {
			if want[t] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
