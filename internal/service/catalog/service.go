package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"
)

// UncategorizedSlug groups products that carry no category.
const UncategorizedSlug = "autres"

// featured sections lead the listing in this order.
var featured = []string{"patisseries-feuilletees", "jus-frais", "chocolat"}

type api interface {
	Get(ctx context.Context, endpoint string, opts ...apiclient.Option) (*http.Response, error)
}

type Service struct {
	api api
}

func New(api api) *Service {
	return &Service{api: api}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	resp, err := s.api.Get(ctx, "/catalog/products/", apiclient.Anonymous())
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	if err := apiclient.DecodeJSON(resp, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GetProduct returns domain.ErrNotFound when the slug is unknown.
func (s *Service) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrNotFound
	}
	resp, err := s.api.Get(ctx, "/catalog/products/"+url.PathEscape(slug)+"/", apiclient.Anonymous())
	if err != nil {
		return nil, err
	}
	var product domain.Product
	if err := apiclient.DecodeJSON(resp, &product); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product %q: %w", slug, err)
	}
	return &product, nil
}

// Section is one category with its products.
type Section struct {
	Category domain.Category  `json:"category"`
	Products []domain.Product `json:"products"`
}

// Sections groups products by category slug. Featured sections come first,
// the rest are sorted by category name. Products keep their listing order.
func Sections(products []domain.Product) []Section {
	index := make(map[string]int)
	sections := []Section{}
	for _, p := range products {
		cat := domain.Category{Name: "Autres", Slug: UncategorizedSlug}
		if p.Category != nil {
			cat = *p.Category
		}
		i, ok := index[cat.Slug]
		if !ok {
			i = len(sections)
			index[cat.Slug] = i
			sections = append(sections, Section{Category: cat})
		}
		sections[i].Products = append(sections[i].Products, p)
	}

	slices.SortStableFunc(sections, func(a, b Section) int {
		ia, ib := slices.Index(featured, a.Category.Slug), slices.Index(featured, b.Category.Slug)
		switch {
		case ia >= 0 && ib >= 0:
			return ia - ib
		case ia >= 0:
			return -1
		case ib >= 0:
			return 1
		}
		return strings.Compare(a.Category.Name, b.Category.Name)
	})
	return sections
}
