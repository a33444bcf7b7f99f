// internal/email/sender.go
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pos-service/internal/config"
	"pos-service/internal/email/templates"
	"pos-service/pkg/models"

	"gopkg.in/gomail.v2"
)

type Sender struct {
	cfg *config.Config
}

func NewSender(cfg *config.Config) *Sender {
	return &Sender{cfg: cfg}
}

// Enabled reports whether SMTP is configured at all.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != "" && s.cfg.SMTPFrom != ""
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("📧 [SEND] To: %s | Subject: %s", to, subject)

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", s.cfg.SMTPFromName, s.cfg.SMTPFrom))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	dialer := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)

	// Exponential backoff: 1s, 2s, 4s → max 3 retries
	for attempt := 0; attempt < 3; attempt++ {
		if err := dialer.DialAndSend(m); err != nil {
			delay := time.Duration(1<<attempt) * time.Second
			log.Printf("❌ [ATTEMPT %d] Failed to send email to %s: %v → retrying in %v", attempt+1, to, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("email send cancelled: %w", ctx.Err())
			}
			continue
		}
		log.Printf("✅ [SUCCESS] Email sent to %s (Subject: %s)", to, subject)
		return nil
	}

	log.Printf("💥 [FAILED] All retries exhausted for %s", to)
	return fmt.Errorf("failed to send email to %s after 3 attempts", to)
}

// SendReceipt renders the receipt for a sale and queues it for async
// delivery. Line items come out of the sale's jsonb column.
func (s *Sender) SendReceipt(to string, store *models.Store, sale *models.Sale) error {
	if !s.Enabled() {
		return fmt.Errorf("SMTP is not configured")
	}

	var items []models.SaleItem
	if len(sale.Items) > 0 {
		if err := json.Unmarshal(sale.Items, &items); err != nil {
			return fmt.Errorf("decode sale items: %w", err)
		}
	}

	data := templates.ReceiptData{
		SaleID:   sale.ID,
		SoldAt:   sale.SoldAt.Format("Jan 2, 2006 15:04"),
		Subtotal: sale.Subtotal,
		Discount: sale.Discount,
		Tax:      sale.Tax,
		Total:    sale.Total,
	}
	if store != nil && store.Name != "" {
		data.StoreName = store.Name
	} else {
		data.StoreName = "Your Store"
	}
	for _, it := range items {
		data.Items = append(data.Items, templates.ReceiptItem{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Total:       it.Total,
		})
	}

	body, err := templates.RenderReceiptEmail(data)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	subject := fmt.Sprintf("Receipt #%d - %s", sale.ID, data.StoreName)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if sendErr := s.Send(ctx, to, subject, body); sendErr != nil {
			log.Printf("⚠️ Background receipt email failed for sale %d: %v", sale.ID, sendErr)
		}
	}()

	log.Printf("📧 [QUEUED] Receipt for sale %d queued for async delivery to %s", sale.ID, to)
	return nil
}
