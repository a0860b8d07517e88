package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// ImageScraper extrae imágenes de producto de la página de un proveedor para
// no cargarlas a mano una por una al dar de alta el catálogo.
type ImageScraper struct {
	client *http.Client
}

func NewImageScraper() *ImageScraper {
	return &ImageScraper{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// FetchProductImages descarga la página y junta las imágenes candidato:
// primero og:image, después <img> del contenido, en orden de aparición.
func (s *ImageScraper) FetchProductImages(ctx context.Context, pageURL string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 6
	}
	if maxResults > 20 {
		maxResults = 20
	}
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("url de proveedor inválida: %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-CO,es;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	images := []string{}
	add := func(raw string) {
		if len(images) >= maxResults {
			return
		}
		u, err := base.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		abs := u.String()
		low := strings.ToLower(abs)
		if strings.Contains(low, "logo") || strings.Contains(low, "icon") || strings.Contains(low, "sprite") {
			return
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		images = append(images, abs)
	}

	doc.Find(`meta[property="og:image"], meta[name="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content)
		}
	})

	doc.Find("img[data-src], img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("data-src"); ok {
			add(src)
			return
		}
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
	})

	if len(images) == 0 {
		return nil, fmt.Errorf("sin imágenes en %s", base.Host)
	}
	log.Info().Str("url", base.String()).Int("found", len(images)).Msg("imágenes extraídas del proveedor")
	return images, nil
}

// Download baja una imagen individual para re-hospedarla en /uploads.
func (s *ImageScraper) Download(ctx context.Context, imgURL string) ([]byte, string, error) {
	u, err := url.Parse(imgURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("url de imagen inválida")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status code: %d", resp.StatusCode)
	}
	const maxImageBytes = 8 << 20
	data := make([]byte, 0, 64<<10)
	buf := make([]byte, 32<<10)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if len(data) > maxImageBytes {
				return nil, "", fmt.Errorf("imagen demasiado grande")
			}
		}
		if err != nil {
			break
		}
	}
	name := u.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "imagen.jpg"
	}
	return data, name, nil
}
