package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/calzavia/tienda/internal/adapters/scraper"
	"github.com/calzavia/tienda/internal/domain"
	"github.com/calzavia/tienda/internal/usecase"
)

type Server struct {
	mux       *http.ServeMux
	tmpl      *template.Template
	products  *usecase.ProductUC
	catalog   *usecase.CatalogUC
	orders    *usecase.OrderUC
	storage   domain.FileStorage
	customers domain.CustomerRepo
	oauthCfg  *oauth2.Config
	images    *scraper.ImageScraper

	adminSecret []byte
}

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

func New(t *template.Template, p *usecase.ProductUC, c *usecase.CatalogUC, o *usecase.OrderUC, fs domain.FileStorage, customers domain.CustomerRepo, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		tmpl:      t,
		products:  p,
		catalog:   c,
		orders:    o,
		storage:   fs,
		customers: customers,
		oauthCfg:  oauthCfg,
		images:    scraper.NewImageScraper(),
		mux:       http.NewServeMux(),
	}

	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = os.Getenv("SECRET_KEY")
	}
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		PublicRateLimit(map[string]int{
			"/api/checkout": 10,
			"/api/quote":    30,
		}),
		RateLimit(60),
		SecurityAndStaticCache,
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir("public"))))
	s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir("uploads"))))

	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/products", s.handleProducts)
	s.mux.HandleFunc("/product/", s.handleProduct)

	s.mux.HandleFunc("/cart", s.handleCart)
	s.mux.HandleFunc("/cart/add", s.handleCartAdd)
	s.mux.HandleFunc("/cart/update", s.handleCartUpdate)
	s.mux.HandleFunc("/cart/remove", s.handleCartRemove)
	s.mux.HandleFunc("/cart/checkout", s.handleCartCheckout)
	s.mux.HandleFunc("/order/", s.handleOrderPlaced)

	s.mux.HandleFunc("/api/options/", s.apiOptions)
	s.mux.HandleFunc("/api/quote/", s.apiQuote)
	s.mux.HandleFunc("/api/checkout", s.apiCheckout)
	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/", s.apiProductBySlug)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/logout", s.handleLogout)

	s.mux.HandleFunc("/admin/auth", s.handleAdminAuth)
	s.mux.HandleFunc("/admin/logout", s.handleAdminLogout)
	s.mux.HandleFunc("/admin/products", s.handleAdminProducts)
	s.mux.HandleFunc("/admin/categories", s.handleAdminCategories)
	s.mux.HandleFunc("/admin/attributes", s.handleAdminAttributes)
	s.mux.HandleFunc("/admin/orders", s.handleAdminOrders)
	s.mux.HandleFunc("/admin/orders/status", s.handleAdminOrderStatus)
	s.mux.HandleFunc("/admin/export/xlsx", s.handleAdminExportXLSX)
	s.mux.HandleFunc("/admin/import/xlsx", s.handleAdminImportXLSX)
	s.mux.HandleFunc("/admin/images/fetch", s.handleAdminImageFetch)
	s.mux.HandleFunc("/admin/images/upload", s.handleAdminImageUpload)
}

// --- Storefront ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	activo := true
	list, _, err := s.products.List(r.Context(), domain.ProductFilter{Page: 1, PageSize: 8, Sort: "newest", Active: &activo})
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	data := map[string]any{"Products": list}
	if u := readUserSession(r); u != nil {
		data["User"] = u
	}
	s.render(w, "home.html", data)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	if page < 1 {
		page = 1
	}
	sort := qv.Get("sort")
	query := qv.Get("q")
	category := qv.Get("category")
	pageSize := 24
	activo := true
	list, total, err := s.products.List(r.Context(), domain.ProductFilter{Page: page, PageSize: pageSize, Sort: sort, Query: query, Category: category, Active: &activo})
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	pages := (int(total) + (pageSize - 1)) / pageSize
	if pages == 0 {
		pages = 1
	}
	cats, _ := s.products.CategoryNames(r.Context())
	data := map[string]any{
		"Products":   list,
		"Total":      total,
		"Page":       page,
		"Pages":      pages,
		"Query":      query,
		"Sort":       sort,
		"Category":   category,
		"Categories": cats,
	}
	if u := readUserSession(r); u != nil {
		data["User"] = u
	}
	s.render(w, "products.html", data)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/product/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	p, err := s.products.GetBySlug(r.Context(), slug)
	if err != nil || !p.Active {
		http.NotFound(w, r)
		return
	}

	// opciones iniciales sin selección, un eje por grupo de botones
	kinds := map[string][]string{}
	for _, v := range p.Variations {
		for k := range v.Attributes {
			if _, ok := kinds[k]; !ok {
				kinds[k] = domain.AvailableValues(p.Variations, k, nil)
			}
		}
	}

	data := map[string]any{
		"Product": p,
		"Kinds":   kinds,
		"Added":   r.URL.Query().Get("added") == "1",
		"Err":     r.URL.Query().Get("err"),
	}
	if p.BundlePrice > 0 {
		if q, err := domain.ComputeTotal(domain.PricingInput{UnitPrice: p.Price, PromoPrice: p.PromoPrice, BundlePrice: p.BundlePrice, Quantity: 2}); err == nil {
			data["BundleQuote"] = q
			data["BundlePct"] = domain.DiscountPercent(q.CompareAt, q.Total)
		}
	}
	if u := readUserSession(r); u != nil {
		data["User"] = u
	}
	s.render(w, "product.html", data)
}

// --- API de selección: la UI la llama después de cada click ---

func selectionFromQuery(qv map[string][]string) domain.Selection {
	sel := domain.Selection{}
	for k, vs := range qv {
		if !strings.HasPrefix(k, "sel_") || len(vs) == 0 || vs[0] == "" {
			continue
		}
		sel[strings.TrimPrefix(k, "sel_")] = vs[0]
	}
	return sel
}

func (s *Server) apiOptions(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/api/options/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	sel := selectionFromQuery(r.URL.Query())
	opts, err := s.catalog.Options(r.Context(), slug, sel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"options": opts})
}

func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/api/quote/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	qty, _ := strconv.Atoi(r.URL.Query().Get("qty"))
	q, err := s.catalog.QuoteFor(r.Context(), slug, qty)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeJSON(w, 400, map[string]string{"error": "cantidad inválida"})
		default:
			http.Error(w, "err", 500)
		}
		return
	}
	writeJSON(w, 200, map[string]any{
		"total":          q.Total,
		"compare_at":     q.CompareAt,
		"bundle_applied": q.BundleApplied,
		"discount_pct":   domain.DiscountPercent(q.CompareAt, q.Total),
	})
}

// --- Carrito (cookie firmada, anónimo) ---

type cartItem struct {
	Slug        string `json:"slug"`
	VariationID string `json:"vid"`
	Qty         int    `json:"qty"`
}

type cartPayload struct {
	Items []cartItem `json:"items"`
}

type cartLine struct {
	Slug       string
	Title      string
	Attributes map[string]string
	Variation  uuid.UUID
	Qty        int
	UnitPrice  int64
	LineTotal  int64
	CompareAt  int64
	Bundle     bool
	ImageURL   string
}

// aggregateCart reconstituye las líneas contra el catálogo actual: una
// variación borrada o agotada simplemente desaparece del carrito, y el precio
// por línea se recalcula con la regla de combo vigente.
func (s *Server) aggregateCart(r *http.Request, cp cartPayload) []cartLine {
	byVar := map[string]*cartItem{}
	order := []string{}
	for i := range cp.Items {
		it := cp.Items[i]
		if it.Qty <= 0 {
			continue
		}
		if prev, ok := byVar[it.VariationID]; ok {
			prev.Qty += it.Qty
			continue
		}
		dup := it
		byVar[it.VariationID] = &dup
		order = append(order, it.VariationID)
	}

	lines := []cartLine{}
	for _, vid := range order {
		it := byVar[vid]
		id, err := uuid.Parse(it.VariationID)
		if err != nil {
			continue
		}
		p, err := s.products.GetBySlug(r.Context(), it.Slug)
		if err != nil {
			continue
		}
		var v *domain.Variation
		for i := range p.Variations {
			if p.Variations[i].ID == id {
				v = &p.Variations[i]
				break
			}
		}
		if v == nil {
			continue
		}
		q, err := domain.ComputeTotal(domain.PricingInput{UnitPrice: p.Price, PromoPrice: p.PromoPrice, BundlePrice: p.BundlePrice, Quantity: it.Qty})
		if err != nil {
			continue
		}
		img := v.ImageURL
		if img == "" && len(p.Images) > 0 {
			img = p.Images[0].URL
		}
		lines = append(lines, cartLine{
			Slug:       it.Slug,
			Title:      p.Name,
			Attributes: v.Attributes,
			Variation:  v.ID,
			Qty:        it.Qty,
			UnitPrice:  p.Price,
			LineTotal:  q.Total,
			CompareAt:  q.CompareAt,
			Bundle:     q.BundleApplied,
			ImageURL:   img,
		})
	}
	return lines
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	cp := readCart(r)
	lines := s.aggregateCart(r, cp)
	var total int64
	for _, l := range lines {
		total += l.LineTotal
	}
	data := map[string]any{
		"Lines": lines,
		"Total": total,
		"Err":   r.URL.Query().Get("err"),
	}
	if u := readUserSession(r); u != nil {
		data["User"] = u
	}
	s.render(w, "cart.html", data)
}

// handleCartAdd resuelve la selección a una variación concreta antes de
// guardar nada: al carrito sólo entran variaciones reales con stock.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	slug := r.FormValue("slug")
	qty, _ := strconv.Atoi(r.FormValue("qty"))
	sel := domain.Selection{}
	for k, vs := range r.PostForm {
		if strings.HasPrefix(k, "sel_") && len(vs) > 0 && vs[0] != "" {
			sel[strings.TrimPrefix(k, "sel_")] = vs[0]
		}
	}
	line, _, err := s.catalog.Resolve(r.Context(), slug, sel, qty)
	if err != nil {
		code := "interno"
		switch {
		case errors.Is(err, domain.ErrIncompleteSelection):
			code = "seleccion"
		case errors.Is(err, domain.ErrNoMatchingVariation):
			code = "combinacion"
		case errors.Is(err, domain.ErrInvalidQuantity):
			code = "cantidad"
		case errors.Is(err, domain.ErrNotFound):
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/product/"+slug+"?err="+code, 302)
		return
	}
	cp := readCart(r)
	cp.Items = append(cp.Items, cartItem{Slug: slug, VariationID: line.VariationID.String(), Qty: line.Quantity})
	writeCart(w, cp)
	http.Redirect(w, r, "/product/"+slug+"?added=1", 302)
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	vid := r.FormValue("vid")
	qty, _ := strconv.Atoi(r.FormValue("qty"))
	cp := readCart(r)
	out := cartPayload{}
	for _, it := range cp.Items {
		if it.VariationID == vid {
			if qty > 0 {
				it.Qty = qty
				out.Items = append(out.Items, it)
			}
			continue
		}
		out.Items = append(out.Items, it)
	}
	writeCart(w, out)
	http.Redirect(w, r, "/cart", 302)
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	vid := r.FormValue("vid")
	cp := readCart(r)
	out := cartPayload{}
	for _, it := range cp.Items {
		if it.VariationID != vid {
			out.Items = append(out.Items, it)
		}
	}
	writeCart(w, out)
	http.Redirect(w, r, "/cart", 302)
}

func shippingCostFor(departamento string) int64 {
	d := strings.ToLower(strings.TrimSpace(departamento))
	switch d {
	case "cundinamarca", "bogotá", "bogota":
		return 8000
	case "antioquia", "valle del cauca", "atlántico", "atlantico", "santander":
		return 12000
	default:
		return 15000
	}
}

func (s *Server) handleCartCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	email := r.FormValue("email")
	name := r.FormValue("name")
	phone := r.FormValue("phone")
	cedula := r.FormValue("cedula")
	departamento := r.FormValue("departamento")
	ciudad := r.FormValue("ciudad")
	barrio := r.FormValue("barrio")
	address := r.FormValue("address")
	notes := r.FormValue("notes")

	if email == "" || name == "" || !emailRe.MatchString(email) {
		http.Redirect(w, r, "/cart?err=datos", 302)
		return
	}
	// contraentrega: sin teléfono ni dirección no hay a quién cobrarle
	if phone == "" || address == "" || ciudad == "" || departamento == "" {
		http.Redirect(w, r, "/cart?err=entrega", 302)
		return
	}
	phoneRe := regexp.MustCompile(`^3\d{9}$`)
	if !phoneRe.MatchString(strings.ReplaceAll(phone, " ", "")) {
		http.Redirect(w, r, "/cart?err=telefono", 302)
		return
	}

	cp := readCart(r)
	lines := s.aggregateCart(r, cp)
	if len(lines) == 0 {
		http.Redirect(w, r, "/cart?err=vacio", 302)
		return
	}

	in := usecase.CheckoutInput{
		Email:        email,
		Name:         name,
		Phone:        strings.ReplaceAll(phone, " ", ""),
		Cedula:       cedula,
		Departamento: departamento,
		Ciudad:       ciudad,
		Barrio:       barrio,
		Address:      address,
		Notes:        notes,
		ShippingCost: shippingCostFor(departamento),
	}
	if u := readUserSession(r); u != nil && s.customers != nil {
		if c, err := s.customers.FindByEmail(r.Context(), u.Email); err == nil {
			id := c.ID
			in.CustomerID = &id
		}
	}
	for _, l := range lines {
		in.Lines = append(in.Lines, usecase.CheckoutLine{
			ProductSlug: l.Slug,
			Line:        domain.OrderLineRequest{VariationID: l.Variation, Quantity: l.Qty},
		})
	}

	o, err := s.orders.Checkout(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			http.Redirect(w, r, "/cart?err=stock", 302)
			return
		}
		log.Error().Err(err).Msg("checkout")
		http.Redirect(w, r, "/cart?err=orden", 302)
		return
	}
	writeCart(w, cartPayload{})
	http.Redirect(w, r, "/order/"+o.ID.String(), 302)
}

func (s *Server) handleOrderPlaced(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/order/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := map[string]any{"Order": o}
	if u := readUserSession(r); u != nil {
		data["User"] = u
	}
	s.render(w, "order_placed.html", data)
}

// --- Checkout JSON (para el flujo de un solo producto desde la página) ---

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var body struct {
		Slug      string            `json:"slug"`
		Selection map[string]string `json:"selection"`
		Qty       int               `json:"qty"`
		Email     string            `json:"email"`
		Name      string            `json:"name"`
		Phone     string            `json:"phone"`
		Cedula    string            `json:"cedula"`
		Depto     string            `json:"departamento"`
		Ciudad    string            `json:"ciudad"`
		Barrio    string            `json:"barrio"`
		Address   string            `json:"address"`
		Notes     string            `json:"notes"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeJSON(w, 400, map[string]string{"error": "json inválido"})
		return
	}
	line, _, err := s.catalog.Resolve(r.Context(), body.Slug, domain.Selection(body.Selection), body.Qty)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIncompleteSelection):
			writeJSON(w, 422, map[string]string{"error": "selección incompleta"})
		case errors.Is(err, domain.ErrNoMatchingVariation):
			writeJSON(w, 409, map[string]string{"error": "esa combinación no está disponible"})
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeJSON(w, 400, map[string]string{"error": "cantidad inválida"})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, 404, map[string]string{"error": "producto no encontrado"})
		default:
			writeJSON(w, 500, map[string]string{"error": "interno"})
		}
		return
	}
	o, err := s.orders.Checkout(r.Context(), usecase.CheckoutInput{
		Email:        body.Email,
		Name:         body.Name,
		Phone:        body.Phone,
		Cedula:       body.Cedula,
		Departamento: body.Depto,
		Ciudad:       body.Ciudad,
		Barrio:       body.Barrio,
		Address:      body.Address,
		Notes:        body.Notes,
		ShippingCost: shippingCostFor(body.Depto),
		Lines:        []usecase.CheckoutLine{{ProductSlug: body.Slug, Line: *line}},
	})
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			writeJSON(w, 409, map[string]string{"error": "stock insuficiente"})
			return
		}
		writeJSON(w, 400, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 201, map[string]any{"order_id": o.ID.String(), "total": o.Total})
}

// --- API de productos (JSON, lectura pública / escritura admin) ---

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		qv := r.URL.Query()
		page, _ := strconv.Atoi(qv.Get("page"))
		list, total, err := s.products.List(r.Context(), domain.ProductFilter{
			Page:     page,
			Query:    qv.Get("q"),
			Category: qv.Get("category"),
			Sort:     qv.Get("sort"),
		})
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		writeJSON(w, 200, map[string]any{"products": list, "total": total})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var p domain.Product
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil {
			writeJSON(w, 400, map[string]string{"error": "json inválido"})
			return
		}
		if err := s.products.Create(r.Context(), &p); err != nil {
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, 201, p)
	default:
		http.Error(w, "method", 405)
	}
}

// apiProductBySlug maneja /api/products/{slug} y
// /api/products/{slug}/variations[/{id}] en el mismo handler, igual que el
// resto del routing plano del mux.
func (s *Server) apiProductBySlug(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	slug := parts[0]

	if len(parts) >= 2 && parts[1] == "variations" {
		s.apiProductVariations(w, r, slug, parts[2:])
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.products.GetBySlug(r.Context(), slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, 200, p)
	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		p, err := s.products.GetBySlug(r.Context(), slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		var in domain.Product
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			writeJSON(w, 400, map[string]string{"error": "json inválido"})
			return
		}
		in.ID = p.ID
		in.Slug = p.Slug
		if err := s.products.Update(r.Context(), &in); err != nil {
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, 200, in)
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		paths, err := s.products.DeleteFullBySlug(r.Context(), slug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, 500, map[string]string{"error": err.Error()})
			return
		}
		if s.storage != nil {
			for _, p := range paths {
				_ = s.storage.Remove(r.Context(), p)
			}
		}
		writeJSON(w, 200, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiProductVariations(w http.ResponseWriter, r *http.Request, slug string, rest []string) {
	p, err := s.products.GetBySlug(r.Context(), slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := s.products.ListVariations(r.Context(), p.ID)
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		writeJSON(w, 200, map[string]any{"variations": list})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var v domain.Variation
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&v); err != nil {
			writeJSON(w, 400, map[string]string{"error": "json inválido"})
			return
		}
		v.ProductID = p.ID
		if err := s.products.CreateVariation(r.Context(), &v); err != nil {
			if errors.Is(err, domain.ErrDuplicateVariation) {
				writeJSON(w, 409, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, 201, v)
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if len(rest) == 0 || rest[0] == "" {
			http.Error(w, "id", 400)
			return
		}
		id, err := uuid.Parse(rest[0])
		if err != nil {
			http.Error(w, "id", 400)
			return
		}
		if err := s.products.DeleteVariation(r.Context(), id); err != nil {
			writeJSON(w, 500, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, 200, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method", 405)
	}
}

// --- Render / helpers ---

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	m, ok := data.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	if _, exists := m["Year"]; !exists {
		m["Year"] = time.Now().Year()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, m); err != nil {
		log.Error().Err(err).Str("tpl", name).Msg("render")
		http.Error(w, "tpl", 500)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func secretKey() []byte {
	k := os.Getenv("SESSION_KEY")
	if k == "" {
		k = "dev-insecure"
	}
	return []byte(k)
}

func signPayload(b []byte) string {
	h := hmac.New(sha256.New, secretKey())
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return sig + "." + base64.RawURLEncoding.EncodeToString(b)
}

func verifyPayload(val string) []byte {
	parts := strings.SplitN(val, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	h := hmac.New(sha256.New, secretKey())
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return nil
	}
	return payload
}

func readCart(r *http.Request) cartPayload {
	c, err := r.Cookie("cart")
	if err != nil {
		return cartPayload{}
	}
	payload := verifyPayload(c.Value)
	if payload == nil {
		return cartPayload{}
	}
	var cp cartPayload
	_ = json.Unmarshal(payload, &cp)
	return cp
}

func writeCart(w http.ResponseWriter, cp cartPayload) {
	b, _ := json.Marshal(cp)
	http.SetCookie(w, &http.Cookie{Name: "cart", Value: signPayload(b), Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true})
}

// --- Sesión de cliente (Google OAuth) ---

type sessionUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func writeUserSession(w http.ResponseWriter, u *sessionUser) {
	if u == nil {
		http.SetCookie(w, &http.Cookie{Name: "sess", Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode})
		return
	}
	b, _ := json.Marshal(u)
	http.SetCookie(w, &http.Cookie{Name: "sess", Value: signPayload(b), Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode})
}

func readUserSession(r *http.Request) *sessionUser {
	if r == nil {
		return nil
	}
	c, err := r.Cookie("sess")
	if err != nil || c.Value == "" {
		return nil
	}
	payload := verifyPayload(c.Value)
	if payload == nil {
		return nil
	}
	var u sessionUser
	if err := json.Unmarshal(payload, &u); err != nil {
		return nil
	}
	if u.Email == "" {
		return nil
	}
	return &u
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth no configurado", 500)
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 300, HttpOnly: true})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), 302)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth no configurado", 500)
		return
	}
	q := r.URL.Query()
	state := q.Get("state")
	code := q.Get("code")
	c, _ := r.Cookie("oauth_state")
	if c == nil || c.Value == "" || c.Value != state {
		http.Error(w, "state", 400)
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		http.Error(w, "oauth", 400)
		return
	}
	client := s.oauthCfg.Client(r.Context(), tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil || resp.StatusCode != 200 {
		log.Error().Err(err).Msg("userinfo")
		http.Error(w, "userinfo", 400)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	_ = json.Unmarshal(body, &info)
	if info.Email == "" {
		http.Error(w, "email", 400)
		return
	}
	if s.customers != nil {
		if _, err := s.customers.FindByEmail(r.Context(), info.Email); errors.Is(err, domain.ErrNotFound) {
			_ = s.customers.Save(r.Context(), &domain.Customer{ID: uuid.New(), Email: info.Email, Name: info.Name})
		}
	}
	writeUserSession(w, &sessionUser{Email: info.Email, Name: info.Name})
	http.Redirect(w, r, "/", 302)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeUserSession(w, nil)
	http.Redirect(w, r, "/", 302)
}
