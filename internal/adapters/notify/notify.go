package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/calzavia/tienda/internal/domain"
)

// Notifier avisa de órdenes nuevas por WhatsApp, email y el píxel de
// Facebook. Cada canal se activa sólo si sus variables de entorno están
// configuradas; los fallos se loguean y no afectan a los demás canales.
type Notifier struct {
	Orders     domain.OrderRepo
	httpClient *http.Client
}

func New(orders domain.OrderRepo) *Notifier {
	return &Notifier{Orders: orders, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (n *Notifier) NotifyNewOrder(ctx context.Context, o *domain.Order) {
	ok := true
	if err := n.sendWhatsApp(ctx, o); err != nil {
		log.Warn().Err(err).Str("order", o.ID.String()).Msg("notif whatsapp falló")
		ok = false
	}
	if err := sendOrderEmail(o); err != nil {
		log.Warn().Err(err).Str("order", o.ID.String()).Msg("notif email falló")
		ok = false
	}
	if err := n.sendPixelPurchase(ctx, o); err != nil {
		log.Warn().Err(err).Str("order", o.ID.String()).Msg("evento pixel falló")
	}
	if ok && n.Orders != nil {
		if err := n.Orders.MarkNotified(ctx, o.ID); err != nil {
			log.Warn().Err(err).Str("order", o.ID.String()).Msg("marcar notificada")
		}
	}
}

func orderSummary(o *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nueva orden contraentrega #%s\n", o.ID.String()[:8])
	fmt.Fprintf(&b, "Nombre: %s\nTel: %s\nCédula: %s\n", o.Name, o.Phone, o.Cedula)
	fmt.Fprintf(&b, "Entrega: %s, %s (%s)\nDirección: %s\n", o.Ciudad, o.Departamento, o.Barrio, o.Address)
	if o.DeliveryNotes != "" {
		fmt.Fprintf(&b, "Notas: %s\n", o.DeliveryNotes)
	}
	b.WriteString("Items:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d $%d", it.Title, it.Qty, it.LineTotal)
		if it.BundleApplied {
			b.WriteString(" (combo x2)")
		}
		if len(it.Attributes) > 0 {
			parts := make([]string, 0, len(it.Attributes))
			for k, v := range it.Attributes {
				parts = append(parts, k+": "+v)
			}
			b.WriteString(" [" + strings.Join(parts, ", ") + "]")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: $%d COP (envío $%d)\n", o.Total, o.ShippingCost)
	return b.String()
}

// sendWhatsApp manda el resumen de la orden al número del local vía la Cloud
// API de Meta. WA_PHONE_ID es el ID del número emisor, WA_NOTIFY_TO el
// destino (puede ser una lista separada por comas).
func (n *Notifier) sendWhatsApp(ctx context.Context, o *domain.Order) error {
	token := os.Getenv("WA_ACCESS_TOKEN")
	phoneID := os.Getenv("WA_PHONE_ID")
	rawTo := os.Getenv("WA_NOTIFY_TO")
	if token == "" || phoneID == "" || strings.TrimSpace(rawTo) == "" {
		return errors.New("whatsapp vars faltantes")
	}
	text := orderSummary(o)
	apiURL := "https://graph.facebook.com/v19.0/" + phoneID + "/messages"

	var lastErr error
	for _, part := range strings.Split(rawTo, ",") {
		to := strings.TrimSpace(part)
		if to == "" {
			continue
		}
		payload := map[string]any{
			"messaging_product": "whatsapp",
			"to":                to,
			"type":              "text",
			"text":              map[string]any{"body": text},
		}
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		res, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		func() {
			defer res.Body.Close()
			if res.StatusCode >= 300 {
				body, _ := io.ReadAll(res.Body)
				lastErr = fmt.Errorf("whatsapp status %d: %s", res.StatusCode, string(body))
			}
		}()
	}
	return lastErr
}

func sendOrderEmail(o *domain.Order) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	to := os.Getenv("ORDER_NOTIFY_EMAIL")
	if to == "" {
		to = "pedidos@calzavia.com.co"
	}
	if host == "" || port == "" || user == "" || pass == "" {
		log.Warn().Msg("SMTP no configurado, se omite envío de email")
		return nil
	}
	p := 587
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
		return fmt.Errorf("SMTP_PORT inválido: %w", err)
	}
	m := gomail.NewMessage()
	m.SetHeader("From", user)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Nueva orden contraentrega #%s", o.ID.String()[:8]))
	m.SetBody("text/plain", orderSummary(o))
	d := gomail.NewDialer(host, p, user, pass)
	return d.DialAndSend(m)
}

// sendPixelPurchase dispara el evento Purchase a la Conversions API para que
// las campañas atribuyan la venta aunque el navegador bloquee el píxel.
func (n *Notifier) sendPixelPurchase(ctx context.Context, o *domain.Order) error {
	pixelID := os.Getenv("FB_PIXEL_ID")
	token := os.Getenv("FB_CAPI_TOKEN")
	if pixelID == "" || token == "" {
		return nil
	}
	event := map[string]any{
		"data": []map[string]any{{
			"event_name":    "Purchase",
			"event_time":    time.Now().Unix(),
			"event_id":      o.ID.String(),
			"action_source": "website",
			"user_data": map[string]any{
				"ph": []string{o.Phone},
			},
			"custom_data": map[string]any{
				"currency": "COP",
				"value":    o.Total,
			},
		}},
	}
	buf, err := json.Marshal(event)
	if err != nil {
		return err
	}
	apiURL := "https://graph.facebook.com/v19.0/" + pixelID + "/events?access_token=" + token
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("pixel status %d: %s", res.StatusCode, string(body))
	}
	return nil
}
