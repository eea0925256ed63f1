package db

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"venuechat/internal/models"
)

// upsertCategories maps provider categories onto store-local category keys,
// creating or refreshing the category rows inside tx. The returned slice
// keeps the provider's order; rows are written in external_id order so
// concurrent candidates sharing categories lock them in the same order.
func upsertCategories(ctx context.Context, tx pgx.Tx, external []models.ExternalCategory, now time.Time) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(external))
	if len(external) == 0 {
		return categories, nil
	}

	order := make([]int, 0, len(external))
	for i, c := range external {
		if c.ID == "" {
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return external[order[a]].ID < external[order[b]].ID
	})

	query := `
		INSERT INTO venue_categories (external_id, name, plural_name, short_name, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name,
		    plural_name = EXCLUDED.plural_name,
		    short_name = EXCLUDED.short_name,
		    icon = EXCLUDED.icon,
		    updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	mapped := make(map[int]models.Category, len(order))
	for _, i := range order {
		c := external[i]
		cat := models.Category{
			ExternalID: c.ID,
			Name:       c.Name,
			PluralName: c.PluralName,
			ShortName:  c.ShortName,
			Icon:       c.Icon,
		}
		if err := tx.QueryRow(ctx, query, c.ID, c.Name, c.PluralName, c.ShortName, c.Icon, now).Scan(&cat.ID); err != nil {
			return nil, err
		}
		mapped[i] = cat
	}

	for i := range external {
		if cat, ok := mapped[i]; ok {
			categories = append(categories, cat)
		}
	}
	return categories, nil
}
