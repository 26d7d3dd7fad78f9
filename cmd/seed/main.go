// Package main seeds the database with demo products, a supplier and,
// optionally, approved stock.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sigfarma/internal/app"
	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/auth"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/infrastructure/storage/postgres"
	"sigfarma/internal/infrastructure/storage/postgres/catalog_repo"
	"sigfarma/pkg/logger"
)

type demoProduct struct {
	code, name string
	price      string
	minStock   int64
}

var demoProducts = []demoProduct{
	{"ACE-500", "Acetaminofen 500mg x 10 tabletas", "3500", 20},
	{"IBU-400", "Ibuprofeno 400mg x 10 tabletas", "4200", 15},
	{"AMX-500", "Amoxicilina 500mg x 12 capsulas", "9800", 10},
	{"LOR-10", "Loratadina 10mg x 10 tabletas", "2900", 10},
	{"OME-20", "Omeprazol 20mg x 14 capsulas", "6100", 12},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "seed"})

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	backend, err := app.PostgresBackend(txm)
	if err != nil {
		log.Fatalw("failed to build storage backend", "error", err)
	}
	svc := app.New(backend)

	sup, err := seedSupplier(ctx, catalog_repo.NewSupplierRepo(txm), log)
	if err != nil {
		log.Fatalw("failed to seed supplier", "error", err)
	}

	products, err := seedProducts(ctx, catalog_repo.NewProductRepo(txm), svc.Products, log)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}

	if os.Getenv("SEED_DEMO_STOCK") == "true" {
		if err := seedStock(ctx, svc.Receivings, sup, products, log); err != nil {
			log.Fatalw("failed to seed stock", "error", err)
		}
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		token, expires, err := auth.NewJWTService(auth.DefaultJWTConfig(secret)).GenerateAccessToken(appctx.UserContext{
			UserID: "dev-cashier",
			Roles:  []string{"cashier"},
		})
		if err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
		log.Infow("development token issued", "expires_at", expires)
		fmt.Println(token)
	}

	log.Info("seeding completed successfully")
}

func seedSupplier(ctx context.Context, repo *catalog_repo.SupplierRepo, log *logger.Logger) (*supplier.Supplier, error) {
	existing, err := repo.GetByCode(ctx, "SUP-001")
	if err == nil {
		log.Infow("supplier already exists", "code", existing.Code)
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	s := supplier.NewSupplier("SUP-001", "Drogueria Central S.A.S.", "900123456-7")
	if err := repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	log.Infow("supplier created", "code", s.Code, "id", s.ID)
	return s, nil
}

func seedProducts(ctx context.Context, repo *catalog_repo.ProductRepo, svc *product.Service, log *logger.Logger) ([]*product.Product, error) {
	out := make([]*product.Product, 0, len(demoProducts))
	for _, d := range demoProducts {
		existing, err := repo.GetByCode(ctx, d.code)
		if err == nil {
			out = append(out, existing)
			continue
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}

		p := product.NewProduct(d.code, d.name, types.MustMoney(d.price), types.NewQuantity(d.minStock))
		if err := svc.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create product %s: %w", d.code, err)
		}
		log.Infow("product created", "code", p.Code, "id", p.ID)
		out = append(out, p)
	}
	return out, nil
}

// seedStock receives and approves one batch per product, expiring at staggered
// dates so every expiry bucket has data.
func seedStock(ctx context.Context, svc *receiving.Service, sup *supplier.Supplier, products []*product.Product, log *logger.Logger) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	rec := receiving.NewRecord(sup.ID, fmt.Sprintf("FAC-SEED-%d", today.Unix()), "Seeder", today)
	rec.City = "Bogota"

	for i, p := range products {
		rec.AddLine(receiving.LineInput{
			ProductID:      p.ID,
			BatchCode:      fmt.Sprintf("%s-L%02d", p.Code, i+1),
			ExpirationDate: today.AddDate(0, 3+i*5, 0),
			Quantity:       types.NewQuantity(50),
			PurchasePrice:  p.SalePrice.Mul(types.MustMoney("0.6")).Round(2),
		})
	}

	if err := svc.CreateDraft(ctx, rec); err != nil {
		return fmt.Errorf("create receiving: %w", err)
	}
	approved, err := svc.Approve(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("approve receiving: %w", err)
	}
	log.Infow("demo stock received", "number", approved.Number, "lines", len(approved.Lines))
	return nil
}
