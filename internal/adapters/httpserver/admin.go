package httpserver

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/xuri/excelize/v2"

	"github.com/calzavia/tienda/internal/domain"
)

// --- Token de admin (cookie JWT) ---

type adminClaims struct {
	User string `json:"usr"`
	jwt.RegisteredClaims
}

func (s *Server) issueAdminToken(user string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := adminClaims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.adminSecret)
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tok, &adminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("método de firma inesperado")
		}
		return s.adminSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*adminClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("token inválido")
	}
	return claims.User, nil
}

func (s *Server) isAdminSession(r *http.Request) bool {
	c, err := r.Cookie("admin_token")
	if err != nil || c.Value == "" {
		return false
	}
	_, err = s.verifyAdminToken(c.Value)
	return err == nil
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if _, err := s.verifyAdminToken(strings.TrimSpace(auth[7:])); err == nil {
			return true
		}
	}
	if s.isAdminSession(r) {
		return true
	}
	http.Error(w, "unauthorized", 401)
	return false
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.isAdminSession(r) {
			http.Redirect(w, r, "/admin/products", 302)
			return
		}
		s.render(w, "admin_auth.html", map[string]any{})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "form", 400)
			return
		}
		user := strings.TrimSpace(r.FormValue("user"))
		pass := strings.TrimSpace(r.FormValue("pass"))
		cfgUser := os.Getenv("ADMIN_USER")
		cfgPass := os.Getenv("ADMIN_PASS")
		if cfgUser == "" || cfgPass == "" {
			log.Error().Msg("ADMIN_USER/ADMIN_PASS faltantes")
			http.Error(w, "config", 500)
			return
		}
		if !secureCompare(user, cfgUser) || !secureCompare(pass, cfgPass) {
			http.Error(w, "credenciales", 401)
			return
		}
		tok, err := s.issueAdminToken(user, 6*time.Hour)
		if err != nil {
			http.Error(w, "token", 500)
			return
		}
		secure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
		http.SetCookie(w, &http.Cookie{Name: "admin_token", Value: tok, Path: "/", MaxAge: 60 * 60 * 6, HttpOnly: true, Secure: secure, SameSite: http.SameSiteStrictMode})
		http.Redirect(w, r, "/admin/products", 302)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	secure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{Name: "admin_token", Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: secure, SameSite: http.SameSiteStrictMode})
	http.Redirect(w, r, "/admin/auth", 302)
}

// --- Páginas de administración ---

func (s *Server) handleAdminProducts(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminSession(r) {
		http.Redirect(w, r, "/admin/auth", 302)
		return
	}
	switch r.Method {
	case http.MethodGet:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		list, total, err := s.products.List(r.Context(), domain.ProductFilter{Page: page, PageSize: 50, Query: r.URL.Query().Get("q")})
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		cats, _ := s.products.ListCategories(r.Context())
		kinds, _ := s.products.ListAttributeKinds(r.Context())
		s.render(w, "admin_products.html", map[string]any{
			"Products":   list,
			"Total":      total,
			"Categories": cats,
			"Kinds":      kinds,
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "form", 400)
			return
		}
		price, _ := strconv.ParseInt(r.FormValue("price"), 10, 64)
		promo, _ := strconv.ParseInt(r.FormValue("promo_price"), 10, 64)
		bundle, _ := strconv.ParseInt(r.FormValue("bundle_price"), 10, 64)
		p := &domain.Product{
			Name:        r.FormValue("name"),
			Price:       price,
			PromoPrice:  promo,
			BundlePrice: bundle,
			Category:    r.FormValue("category"),
			Brand:       r.FormValue("brand"),
			ShortDesc:   r.FormValue("short_desc"),
			Active:      r.FormValue("active") != "0",
		}
		if err := s.products.Create(r.Context(), p); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		http.Redirect(w, r, "/admin/products", 302)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleAdminCategories(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminSession(r) {
		http.Redirect(w, r, "/admin/auth", 302)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cats, err := s.products.ListCategories(r.Context())
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		s.render(w, "admin_categories.html", map[string]any{"Categories": cats})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "form", 400)
			return
		}
		if id := r.FormValue("delete"); id != "" {
			uid, err := uuid.Parse(id)
			if err != nil {
				http.Error(w, "id", 400)
				return
			}
			if err := s.products.DeleteCategory(r.Context(), uid); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			http.Redirect(w, r, "/admin/categories", 302)
			return
		}
		pos, _ := strconv.Atoi(r.FormValue("position"))
		c := &domain.Category{Name: r.FormValue("name"), Position: pos}
		if err := s.products.SaveCategory(r.Context(), c); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		http.Redirect(w, r, "/admin/categories", 302)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleAdminAttributes(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminSession(r) {
		http.Redirect(w, r, "/admin/auth", 302)
		return
	}
	switch r.Method {
	case http.MethodGet:
		kinds, err := s.products.ListAttributeKinds(r.Context())
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		s.render(w, "admin_attributes.html", map[string]any{"Kinds": kinds})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "form", 400)
			return
		}
		switch {
		case r.FormValue("kind_name") != "":
			k := &domain.AttributeKind{Name: strings.TrimSpace(r.FormValue("kind_name"))}
			if err := s.products.SaveAttributeKind(r.Context(), k); err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
		case r.FormValue("value") != "" && r.FormValue("kind_id") != "":
			kid, err := uuid.Parse(r.FormValue("kind_id"))
			if err != nil {
				http.Error(w, "kind id", 400)
				return
			}
			v := &domain.AttributeValue{KindID: kid, Value: strings.TrimSpace(r.FormValue("value"))}
			if err := s.products.SaveAttributeValue(r.Context(), v); err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
		case r.FormValue("delete_kind") != "":
			kid, err := uuid.Parse(r.FormValue("delete_kind"))
			if err != nil {
				http.Error(w, "kind id", 400)
				return
			}
			if err := s.products.DeleteAttributeKind(r.Context(), kid); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		case r.FormValue("delete_value") != "":
			vid, err := uuid.Parse(r.FormValue("delete_value"))
			if err != nil {
				http.Error(w, "value id", 400)
				return
			}
			if err := s.products.DeleteAttributeValue(r.Context(), vid); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		}
		http.Redirect(w, r, "/admin/attributes", 302)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminSession(r) {
		http.Redirect(w, r, "/admin/auth", 302)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	list, total, err := s.orders.List(r.Context(), status, page, 50)
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	s.render(w, "admin_orders.html", map[string]any{
		"Orders": list,
		"Total":  total,
		"Status": string(status),
	})
}

func (s *Server) handleAdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminSession(r) {
		http.Redirect(w, r, "/admin/auth", 302)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	id, err := uuid.Parse(r.FormValue("id"))
	if err != nil {
		http.Error(w, "id", 400)
		return
	}
	status := domain.OrderStatus(r.FormValue("status"))
	if err := s.orders.UpdateStatus(r.Context(), id, status); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	http.Redirect(w, r, "/admin/orders", 302)
}

// --- Export / import XLSX ---

var xlsxHeader = []string{"slug", "nombre", "precio", "promo", "combo", "categoria", "marca", "sku", "stock", "atributos"}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ";")
}

func parseAttrs(raw string) map[string]string {
	attrs := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] != "" && kv[1] != "" {
			attrs[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return attrs
}

// handleAdminExportXLSX exporta el catálogo completo, una fila por variación.
func (s *Server) handleAdminExportXLSX(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	list, _, err := s.products.List(r.Context(), domain.ProductFilter{Page: 1, PageSize: 10000})
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	f := excelize.NewFile()
	sheet := "Catalogo"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		http.Error(w, "xlsx", 500)
		return
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")
	for col, h := range xlsxHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	row := 2
	for _, p := range list {
		if len(p.Variations) == 0 {
			vals := []any{p.Slug, p.Name, p.Price, p.PromoPrice, p.BundlePrice, p.Category, p.Brand, "", 0, ""}
			for col, v := range vals {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			row++
			continue
		}
		for _, vr := range p.Variations {
			vals := []any{p.Slug, p.Name, p.Price, p.PromoPrice, p.BundlePrice, p.Category, p.Brand, vr.SKU, vr.Stock, formatAttrs(vr.Attributes)}
			for col, v := range vals {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="catalogo.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("export xlsx")
	}
}

// handleAdminImportXLSX carga productos y variaciones desde una planilla con
// el mismo formato del export. Filas con combinación repetida se saltean y se
// reportan, no abortan la importación.
func (s *Server) handleAdminImportXLSX(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file", 400)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, 16<<20))
	if err != nil {
		http.Error(w, "read", 400)
		return
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "xlsx inválido", 400)
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		http.Error(w, "planilla vacía", 400)
		return
	}

	useAI := r.FormValue("use_ai") == "1"
	created, updated, skipped := 0, 0, []string{}
	for i, row := range rows[1:] {
		get := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		name := get(1)
		if name == "" {
			continue
		}
		price, _ := strconv.ParseInt(get(2), 10, 64)
		promo, _ := strconv.ParseInt(get(3), 10, 64)
		bundle, _ := strconv.ParseInt(get(4), 10, 64)

		p, err := s.products.GetBySlug(r.Context(), get(0))
		if errors.Is(err, domain.ErrNotFound) {
			p = &domain.Product{
				Slug:        get(0),
				Name:        name,
				Price:       price,
				PromoPrice:  promo,
				BundlePrice: bundle,
				Category:    get(5),
				Brand:       get(6),
				Active:      true,
			}
			if useAI {
				p.ShortDesc = s.suggestDescription(r.Context(), name, get(6), get(5))
			}
			if err := s.products.Create(r.Context(), p); err != nil {
				skipped = append(skipped, fmt.Sprintf("fila %d: %v", i+2, err))
				continue
			}
			created++
		} else if err != nil {
			skipped = append(skipped, fmt.Sprintf("fila %d: %v", i+2, err))
			continue
		} else {
			p.Name = name
			p.Price = price
			p.PromoPrice = promo
			p.BundlePrice = bundle
			p.Category = get(5)
			p.Brand = get(6)
			if err := s.products.Update(r.Context(), p); err != nil {
				skipped = append(skipped, fmt.Sprintf("fila %d: %v", i+2, err))
				continue
			}
			updated++
		}

		attrs := parseAttrs(get(9))
		if len(attrs) == 0 {
			continue
		}
		stock, _ := strconv.Atoi(get(8))
		v := &domain.Variation{ProductID: p.ID, SKU: get(7), Stock: stock, Attributes: attrs}
		if err := s.products.CreateVariation(r.Context(), v); err != nil {
			if errors.Is(err, domain.ErrDuplicateVariation) {
				skipped = append(skipped, fmt.Sprintf("fila %d: combinación repetida", i+2))
				continue
			}
			skipped = append(skipped, fmt.Sprintf("fila %d: %v", i+2, err))
		}
	}
	writeJSON(w, 200, map[string]any{"created": created, "updated": updated, "skipped": skipped})
}

// suggestDescription pide una descripción corta de venta. Mejor esfuerzo: sin
// API key o con error devuelve vacío y la importación sigue.
func (s *Server) suggestDescription(ctx context.Context, name, brand, category string) string {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return ""
	}
	client := openai.NewClient(apiKey)
	cctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	resp, err := client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Escribís descripciones de venta de máximo 40 palabras, en español, para una tienda colombiana de calzado y ropa. Sin emojis ni hashtags.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Producto: %s. Marca: %s. Categoría: %s.", name, brand, category),
			},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Warn().Err(err).Str("producto", name).Msg("descripción AI falló")
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// --- Imágenes ---

// handleAdminImageFetch trae imágenes desde la página de un proveedor y las
// re-hospeda en /uploads.
func (s *Server) handleAdminImageFetch(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	slug := r.FormValue("slug")
	pageURL := r.FormValue("url")
	max, _ := strconv.Atoi(r.FormValue("max"))
	p, err := s.products.GetBySlug(r.Context(), slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	urls, err := s.images.FetchProductImages(r.Context(), pageURL, max)
	if err != nil {
		writeJSON(w, 400, map[string]string{"error": err.Error()})
		return
	}
	saved := []domain.Image{}
	for _, u := range urls {
		data, name, err := s.images.Download(r.Context(), u)
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("descarga de imagen falló")
			continue
		}
		path, err := s.storage.Save(r.Context(), name, data)
		if err != nil {
			log.Warn().Err(err).Msg("guardar imagen")
			continue
		}
		saved = append(saved, domain.Image{URL: path, Alt: p.Name})
	}
	if len(saved) == 0 {
		writeJSON(w, 400, map[string]string{"error": "no se pudo guardar ninguna imagen"})
		return
	}
	if err := s.products.AddImages(r.Context(), p.ID, saved); err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"saved": len(saved)})
}

func (s *Server) handleAdminImageUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	slug := r.FormValue("slug")
	p, err := s.products.GetBySlug(r.Context(), slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		http.Error(w, "sin archivos", 400)
		return
	}
	imgs := []domain.Image{}
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(src, 8<<20))
		src.Close()
		if err != nil {
			continue
		}
		path, err := s.storage.Save(r.Context(), fh.Filename, data)
		if err != nil {
			log.Warn().Err(err).Msg("guardar upload")
			continue
		}
		imgs = append(imgs, domain.Image{URL: path, Alt: p.Name})
	}
	if err := s.products.AddImages(r.Context(), p.ID, imgs); err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"saved": len(imgs)})
}
