package app

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/calzavia/tienda/internal/adapters/httpserver"
	"github.com/calzavia/tienda/internal/adapters/notify"
	"github.com/calzavia/tienda/internal/adapters/repo/postgres"
	"github.com/calzavia/tienda/internal/adapters/storage/localfs"
	"github.com/calzavia/tienda/internal/domain"
	"github.com/calzavia/tienda/internal/usecase"
	"github.com/calzavia/tienda/internal/views"
)

type App struct {
	DB          *gorm.DB
	Tmpl        *template.Template
	ProductUC   *usecase.ProductUC
	CatalogUC   *usecase.CatalogUC
	OrderUC     *usecase.OrderUC
	Storage     domain.FileStorage
	Customers   domain.CustomerRepo
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {

	prodRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	custRepo := postgres.NewCustomerRepo(db)
	catRepo := postgres.NewCategoryRepo(db)
	attrRepo := postgres.NewAttributeRepo(db)

	storageDir := os.Getenv("STORAGE_DIR")
	if storageDir == "" {
		storageDir = "uploads"
	}
	_ = os.MkdirAll(storageDir, 0755)
	storage := localfs.New(storageDir)

	appEnv := strings.ToLower(os.Getenv("APP_ENV"))

	// resolución de variaciones: por defecto alcanza con dos ejes (talla y
	// color); RESOLVER_STRICT exige todos los ejes que declare el producto
	resolver := domain.ResolverConfig{}
	if os.Getenv("RESOLVER_STRICT") == "1" {
		resolver.Strict = true
	}
	if n, err := strconv.Atoi(os.Getenv("RESOLVER_MIN_KINDS")); err == nil && n > 0 {
		resolver.MinKinds = n
	}

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	app := &App{}
	app.ProductUC = &usecase.ProductUC{Products: prodRepo, Categories: catRepo, Attributes: attrRepo}
	app.CatalogUC = &usecase.CatalogUC{Products: prodRepo, Resolver: resolver}
	app.OrderUC = &usecase.OrderUC{Orders: orderRepo, Products: prodRepo, Notifier: notify.New(orderRepo)}
	app.DB = db
	app.Storage = storage
	app.Customers = custRepo
	app.OAuthConfig = oauthCfg

	funcMap := templateFuncs()

	isDev := appEnv == "" || appEnv == "development" || appEnv == "dev"

	var tmpl *template.Template
	var err error

	if isDev {
		tmpl, err = template.New("layout").Funcs(funcMap).ParseGlob("internal/views/*.html")
		if err != nil {
			return nil, fmt.Errorf("parse views: %w", err)
		}
	} else {
		tmpl, err = template.New("layout").Funcs(funcMap).ParseFS(views.FS, "*.html")
		if err != nil {
			return nil, fmt.Errorf("parse views: %w", err)
		}
	}

	app.Tmpl = tmpl

	return app, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"cop": func(v int64) string {
			s := strconv.FormatInt(v, 10)
			neg := false
			if strings.HasPrefix(s, "-") {
				neg = true
				s = s[1:]
			}
			n := len(s)
			if n > 3 {
				rem := n % 3
				if rem == 0 {
					rem = 3
				}
				out := s[:rem]
				for i := rem; i < n; i += 3 {
					out += "." + s[i:i+3]
				}
				s = out
			}
			if neg {
				s = "-" + s
			}
			return "$ " + s
		},
		"img": func(u string) string {
			s := strings.TrimSpace(u)
			if s == "" {
				return s
			}
			if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "/") {
				s = "/" + s
			}
			s = strings.ReplaceAll(s, " ", "%20")
			return s
		},
		"pct": func(before, now int64) int { return domain.DiscountPercent(before, now) },
	}
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Tmpl, a.ProductUC, a.CatalogUC, a.OrderUC, a.Storage, a.Customers, a.OAuthConfig)
}

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Variation{}, &domain.Image{}, &domain.Category{},
		&domain.AttributeKind{}, &domain.AttributeValue{},
		&domain.Order{}, &domain.OrderItem{}, &domain.Customer{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("ALTER TABLE products ADD COLUMN IF NOT EXISTS bundle_price BIGINT DEFAULT 0").Error
	_ = a.DB.Exec("ALTER TABLE products ADD COLUMN IF NOT EXISTS active BOOLEAN DEFAULT true").Error
	_ = a.DB.Exec("UPDATE products SET active = true WHERE active IS NULL").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_active ON products(active)").Error

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_variations_attributes ON variations USING gin (attributes)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_variations_sku_unique ON variations (sku) WHERE sku IS NOT NULL AND sku <> ''").Error

	_ = a.DB.Exec("ALTER TABLE orders ADD COLUMN IF NOT EXISTS cedula VARCHAR(30)").Error
	_ = a.DB.Exec("ALTER TABLE orders ADD COLUMN IF NOT EXISTS barrio VARCHAR(100)").Error
	_ = a.DB.Exec("ALTER TABLE orders ADD COLUMN IF NOT EXISTS notified BOOLEAN DEFAULT false").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)").Error

	if err := backfillSlugs(a.DB); err != nil {
		return err
	}

	return seedAttributeKinds(a.DB)
}
