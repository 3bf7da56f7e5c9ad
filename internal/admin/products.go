package admin

import (
	"context"
	"fmt"
	"log/slog"
)

// productsQuery fetches one page of products matching a search query.
// Tags come back in their stored order, which the mutation planner preserves.
const productsQuery = `
query products($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        handle
        productType
        tags
      }
    }
  }
}`

// productsResponse mirrors the GraphQL products connection shape.
// Unexported — callers receive normalized ProductPage values.
type productsResponse struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node struct {
				ID          string   `json:"id"`
				Title       string   `json:"title"`
				Handle      string   `json:"handle"`
				ProductType string   `json:"productType"`
				Tags        []string `json:"tags"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// SearchProducts fetches one page of products matching query.
// Pass an empty cursor for the first page; for subsequent pages, pass the
// EndCursor from the previous ProductPage while HasNextPage is true.
func (c *Client) SearchProducts(ctx context.Context, query string, pageSize int, cursor string) (*ProductPage, error) {
	variables := map[string]any{
		"first": pageSize,
		"query": query,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	c.logger.Debug("fetching product page",
		slog.String("query", query),
		slog.Bool("first_page", cursor == ""),
	)

	var pr productsResponse
	if err := c.Do(ctx, productsQuery, variables, &pr); err != nil {
		return nil, fmt.Errorf("admin: searching products: %w", err)
	}

	products := make([]Product, 0, len(pr.Products.Edges))
	for _, e := range pr.Products.Edges {
		products = append(products, Product{
			ID:          e.Node.ID,
			Title:       e.Node.Title,
			Handle:      e.Node.Handle,
			ProductType: e.Node.ProductType,
			Tags:        e.Node.Tags,
		})
	}

	c.logger.Debug("fetched product page",
		slog.Int("count", len(products)),
		slog.Bool("has_next_page", pr.Products.PageInfo.HasNextPage),
	)

	return &ProductPage{
		Products:    products,
		HasNextPage: pr.Products.PageInfo.HasNextPage,
		EndCursor:   pr.Products.PageInfo.EndCursor,
	}, nil
}
