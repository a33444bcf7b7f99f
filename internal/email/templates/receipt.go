package templates

import (
	"bytes"
	"html/template"
	"time"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(receiptHTML))

// ReceiptItem is one rendered line of a receipt.
type ReceiptItem struct {
	ProductName string
	Quantity    int
	Total       float64
}

// ReceiptData holds everything the receipt email needs.
type ReceiptData struct {
	StoreName string
	SaleID    uint
	SoldAt    string
	Items     []ReceiptItem
	Subtotal  float64
	Discount  float64
	Tax       float64
	Total     float64
	Year      int // Auto-set if 0
}

func RenderReceiptEmail(data ReceiptData) (string, error) {
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	if data.StoreName == "" {
		data.StoreName = "POS Store"
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
