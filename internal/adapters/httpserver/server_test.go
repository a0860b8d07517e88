package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calzavia/tienda/internal/domain"
	"github.com/calzavia/tienda/internal/usecase"
)

type fakeProductRepo struct {
	products map[string]*domain.Product
	listErr  error
}

func (f *fakeProductRepo) Save(ctx context.Context, p *domain.Product) error { return nil }

func (f *fakeProductRepo) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if p, ok := f.products[slug]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProductRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	out := []domain.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProductRepo) DeleteFullBySlug(ctx context.Context, slug string) ([]string, error) {
	delete(f.products, slug)
	return nil, nil
}

func (f *fakeProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeProductRepo) AddImages(ctx context.Context, productID uuid.UUID, imgs []domain.Image) error {
	return nil
}

func (f *fakeProductRepo) ClearImages(ctx context.Context, productID uuid.UUID) ([]string, error) {
	return nil, nil
}

func (f *fakeProductRepo) SaveVariation(ctx context.Context, v *domain.Variation) error { return nil }

func (f *fakeProductRepo) ListVariations(ctx context.Context, productID uuid.UUID) ([]domain.Variation, error) {
	for _, p := range f.products {
		if p.ID == productID {
			return p.Variations, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) FindVariation(ctx context.Context, id uuid.UUID) (*domain.Variation, error) {
	for _, p := range f.products {
		for i := range p.Variations {
			if p.Variations[i].ID == id {
				return &p.Variations[i], nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProductRepo) DeleteVariation(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeProductRepo) ReserveStock(ctx context.Context, variationID uuid.UUID, qty int) error {
	v, err := f.FindVariation(ctx, variationID)
	if err != nil {
		return err
	}
	if v.Stock < qty {
		return domain.ErrOutOfStock
	}
	v.Stock -= qty
	return nil
}

func (f *fakeProductRepo) RestoreStock(ctx context.Context, variationID uuid.UUID, qty int) error {
	v, err := f.FindVariation(ctx, variationID)
	if err != nil {
		return err
	}
	v.Stock += qty
	return nil
}

type fakeCategoryRepo struct{ cats []domain.Category }

func (f *fakeCategoryRepo) Save(ctx context.Context, c *domain.Category) error {
	f.cats = append(f.cats, *c)
	return nil
}
func (f *fakeCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	return f.cats, nil
}
func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeAttributeRepo struct{ kinds []domain.AttributeKind }

func (f *fakeAttributeRepo) SaveKind(ctx context.Context, k *domain.AttributeKind) error {
	f.kinds = append(f.kinds, *k)
	return nil
}
func (f *fakeAttributeRepo) ListKinds(ctx context.Context) ([]domain.AttributeKind, error) {
	return f.kinds, nil
}
func (f *fakeAttributeRepo) DeleteKind(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeAttributeRepo) SaveValue(ctx context.Context, v *domain.AttributeValue) error {
	return nil
}
func (f *fakeAttributeRepo) DeleteValue(ctx context.Context, id uuid.UUID) error { return nil }

func testProduct() *domain.Product {
	pid := uuid.New()
	return &domain.Product{
		ID:          pid,
		Slug:        "botin-cuero",
		Name:        "Botín de cuero",
		Price:       50000,
		PromoPrice:  60000,
		BundlePrice: 79900,
		Active:      true,
		Variations: []domain.Variation{
			{ID: uuid.New(), ProductID: pid, Stock: 5, Attributes: map[string]string{"talla": "38", "color": "negro"}},
			{ID: uuid.New(), ProductID: pid, Stock: 0, Attributes: map[string]string{"talla": "39", "color": "negro"}},
			{ID: uuid.New(), ProductID: pid, Stock: 2, Attributes: map[string]string{"talla": "38", "color": "café"}},
		},
	}
}

func testTemplates(t *testing.T) *template.Template {
	t.Helper()
	const src = `
{{define "home.html"}}home{{end}}
{{define "products.html"}}products{{end}}
{{define "product.html"}}{{.Product.Name}}{{end}}
{{define "cart.html"}}{{len .Lines}} lineas{{end}}
{{define "order_placed.html"}}{{.Order.ID}}{{end}}
{{define "admin_auth.html"}}login{{end}}
{{define "admin_products.html"}}admin{{end}}
{{define "admin_orders.html"}}pedidos{{end}}`
	return template.Must(template.New("layout").Parse(src))
}

func newTestServer(t *testing.T) (http.Handler, *fakeProductRepo) {
	t.Helper()
	repo := &fakeProductRepo{products: map[string]*domain.Product{}}
	p := testProduct()
	repo.products[p.Slug] = p

	productUC := &usecase.ProductUC{Products: repo, Categories: &fakeCategoryRepo{}, Attributes: &fakeAttributeRepo{}}
	catalogUC := &usecase.CatalogUC{Products: repo}
	orderUC := &usecase.OrderUC{Orders: nil, Products: repo}

	return New(testTemplates(t), productUC, catalogUC, orderUC, nil, nil, nil), repo
}

func TestFirmaDeCookieRoundTrip(t *testing.T) {
	val := signPayload([]byte(`{"items":[]}`))
	if got := verifyPayload(val); string(got) != `{"items":[]}` {
		t.Fatalf("payload = %q", got)
	}
	if got := verifyPayload("adulterado." + strings.SplitN(val, ".", 2)[1]); got != nil {
		t.Fatalf("payload adulterado aceptado: %q", got)
	}
	if got := verifyPayload("sin-punto"); got != nil {
		t.Fatalf("formato inválido aceptado: %q", got)
	}
}

func TestAPIQuoteCombo(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/quote/botin-cuero?qty=2", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Total         int64 `json:"total"`
		CompareAt     int64 `json:"compare_at"`
		BundleApplied bool  `json:"bundle_applied"`
		DiscountPct   int   `json:"discount_pct"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 79900 || !body.BundleApplied {
		t.Fatalf("total = %d bundle = %v", body.Total, body.BundleApplied)
	}
	if body.CompareAt != 120000 {
		t.Fatalf("compare_at = %d", body.CompareAt)
	}
	if body.DiscountPct != 33 {
		t.Fatalf("discount_pct = %d", body.DiscountPct)
	}
}

func TestAPIQuoteCantidadInvalida(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/quote/botin-cuero?qty=0", nil))
	if rec.Code != 400 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIOptionsFiltraPorStock(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/options/botin-cuero?sel_color=negro", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Options map[string][]string `json:"options"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	// talla 39 negro está sin stock, no debe ofrecerse
	tallas := body.Options["talla"]
	if len(tallas) != 1 || tallas[0] != "38" {
		t.Fatalf("tallas = %v", tallas)
	}
}

func TestCartAddResuelveYFirma(t *testing.T) {
	h, repo := newTestServer(t)

	form := url.Values{}
	form.Set("slug", "botin-cuero")
	form.Set("qty", "1")
	form.Set("sel_talla", "38")
	form.Set("sel_color", "negro")

	req := httptest.NewRequest("POST", "/cart/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 302 {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "added=1") {
		t.Fatalf("location = %q", loc)
	}

	var cart *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "cart" {
			cart = c
		}
	}
	if cart == nil {
		t.Fatal("no se escribió la cookie del carrito")
	}
	payload := verifyPayload(cart.Value)
	if payload == nil {
		t.Fatal("cookie del carrito sin firma válida")
	}
	var cp cartPayload
	if err := json.Unmarshal(payload, &cp); err != nil {
		t.Fatal(err)
	}
	if len(cp.Items) != 1 || cp.Items[0].Qty != 1 {
		t.Fatalf("items = %+v", cp.Items)
	}
	want := repo.products["botin-cuero"].Variations[0].ID.String()
	if cp.Items[0].VariationID != want {
		t.Fatalf("variation = %s want %s", cp.Items[0].VariationID, want)
	}
}

func TestCartAddSeleccionIncompleta(t *testing.T) {
	h, _ := newTestServer(t)

	form := url.Values{}
	form.Set("slug", "botin-cuero")
	form.Set("qty", "1")
	form.Set("sel_talla", "38")

	req := httptest.NewRequest("POST", "/cart/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 302 {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "err=seleccion") {
		t.Fatalf("location = %q", loc)
	}
}

func TestCartAddCombinacionInexistente(t *testing.T) {
	h, _ := newTestServer(t)

	form := url.Values{}
	form.Set("slug", "botin-cuero")
	form.Set("qty", "1")
	form.Set("sel_talla", "42")
	form.Set("sel_color", "verde")

	req := httptest.NewRequest("POST", "/cart/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "err=combinacion") {
		t.Fatalf("location = %q", loc)
	}
}

func TestCatalogoConBaseCaidaDevuelve500(t *testing.T) {
	h, repo := newTestServer(t)
	repo.listErr = errors.New("conexión rechazada")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/products", nil))
	if rec.Code != 500 {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Fatal("renderizó catálogo con la base caída")
	}
}

func TestAdminSinTokenRechazado(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/export/xlsx", nil))
	if rec.Code != 401 {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/products", nil))
	if rec.Code != 302 || rec.Header().Get("Location") != "/admin/auth" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAdminLoginEmiteCookie(t *testing.T) {
	t.Setenv("ADMIN_USER", "admin")
	t.Setenv("ADMIN_PASS", "secreto")
	t.Setenv("JWT_ADMIN_SECRET", "clave-de-prueba")

	h, _ := newTestServer(t)

	form := url.Values{}
	form.Set("user", "admin")
	form.Set("pass", "secreto")
	req := httptest.NewRequest("POST", "/admin/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 302 {
		t.Fatalf("status = %d", rec.Code)
	}
	var token *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "admin_token" {
			token = c
		}
	}
	if token == nil || token.Value == "" {
		t.Fatal("no se emitió admin_token")
	}

	// con la cookie, la página de productos ya no redirige al login
	req = httptest.NewRequest("GET", "/admin/products", nil)
	req.AddCookie(token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status con token = %d", rec.Code)
	}

	// credenciales equivocadas quedan afuera
	form.Set("pass", "otra")
	req = httptest.NewRequest("POST", "/admin/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("status credenciales = %d", rec.Code)
	}
}
