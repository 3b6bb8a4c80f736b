// Package seed populates empty collections with the default dataset before
// the API starts serving.
package seed

import (
	"context"

	"github.com/rs/zerolog"

	"cafe-system/internal/domain"
	"cafe-system/internal/store"
)

var products = []domain.Product{
	{ID: "prod_01", Name: "Café Espresso", Price: 5.00, Stock: 100, Category: "Bebidas"},
	{ID: "prod_02", Name: "Cappuccino Italiano", Price: 8.50, Stock: 80, Category: "Bebidas"},
	{ID: "prod_03", Name: "Pão de Queijo (Unidade)", Price: 4.00, Stock: 150, Category: "Salgados"},
	{ID: "prod_04", Name: "Croissant Tradicional", Price: 7.00, Stock: 60, Category: "Salgados"},
	{ID: "prod_05", Name: "Bolo de Chocolate (Fatia)", Price: 9.00, Stock: 40, Category: "Doces"},
	{ID: "prod_06", Name: "Suco de Laranja Natural (300ml)", Price: 7.50, Stock: 90, Category: "Bebidas"},
	{ID: "prod_07", Name: "Torta de Frango (Fatia)", Price: 12.00, Stock: 50, Category: "Salgados"},
	{ID: "prod_08", Name: "Brownie com Sorvete", Price: 15.00, Stock: 35, Category: "Doces"},
	{ID: "prod_09", Name: "Água Mineral sem Gás", Price: 3.50, Stock: 200, Category: "Bebidas"},
	{ID: "prod_10", Name: "Misto Quente", Price: 10.00, Stock: 70, Category: "Salgados"},
}

var tables = []domain.Table{
	{ID: "table_1", Name: "Mesa 1", Status: domain.TableAvailable},
	{ID: "table_2", Name: "Mesa 2", Status: domain.TableAvailable},
	{ID: "table_3", Name: "Mesa 3", Status: domain.TableAvailable},
	{ID: "table_4", Name: "Mesa 4", Status: domain.TableAvailable},
	{ID: "table_5", Name: "Mesa 5", Status: domain.TableAvailable},
	{ID: "table_6", Name: "Mesa 6", Status: domain.TableAvailable},
	{ID: "table_7", Name: "Mesa 7", Status: domain.TableAvailable},
	{ID: "table_8", Name: "Mesa 8", Status: domain.TableAvailable},
}

var waiters = []domain.Waiter{
	{ID: "waiter_1", Name: "João"},
	{ID: "waiter_2", Name: "Maria"},
	{ID: "waiter_3", Name: "Carlos"},
}

// Apply fills each empty collection with its defaults. A collection with
// any documents at all is left alone, so reseeding a live store is safe.
func Apply(ctx context.Context, st store.Store, log zerolog.Logger) error {
	return st.RunTx(ctx, func(tx store.Tx) error {
		if err := seedCollection(ctx, tx, log, domain.ColProducts, len(products), func(i int) (string, any) {
			return products[i].ID, products[i]
		}); err != nil {
			return err
		}
		if err := seedCollection(ctx, tx, log, domain.ColTables, len(tables), func(i int) (string, any) {
			return tables[i].ID, tables[i]
		}); err != nil {
			return err
		}
		return seedCollection(ctx, tx, log, domain.ColWaiters, len(waiters), func(i int) (string, any) {
			return waiters[i].ID, waiters[i]
		})
	})
}

func seedCollection(ctx context.Context, tx store.Tx, log zerolog.Logger, collection string, n int, doc func(i int) (string, any)) error {
	existing, err := tx.List(ctx, collection)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		id, d := doc(i)
		if err := tx.Put(ctx, collection, id, d); err != nil {
			return err
		}
	}
	log.Info().Str("collection", collection).Int("documents", n).Msg("seeded empty collection")
	return nil
}
