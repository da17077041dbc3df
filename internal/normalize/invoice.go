package normalize

import (
	"math"
	"strconv"
	"strings"
)

// invoiceQuantityKeys is the shared fallback order for quantity fields inside
// imported invoice payloads. Workbooks and the WhatsApp digest both resolve
// quantities through this single table so their totals never disagree.
var invoiceQuantityKeys = []string{"quantidade", "quantidadeAnimais", "qtd"}

// InvoiceItem is one invoice line as stored: an optional explicit quantity
// column plus the raw imported JSON payload, whose shape drifted across
// spreadsheet versions.
type InvoiceItem struct {
	Quantidade   *int
	Payload      map[string]any
	ModoRegistro string
}

// ResolveInvoiceQuantity resolves the effective head count of an invoice
// line: explicit column, then the payload aliases in fallback order, then the
// registration-mode default.
func ResolveInvoiceQuantity(item InvoiceItem) int {
	if item.Quantidade != nil && *item.Quantidade > 0 {
		return *item.Quantidade
	}

	for _, key := range invoiceQuantityKeys {
		if n, ok := payloadInt(item.Payload, key); ok && n > 0 {
			return n
		}
	}

	if strings.EqualFold(strings.TrimSpace(item.ModoRegistro), "categoria") {
		// Category-mode lines describe at least one animal even when the
		// spreadsheet omitted a count.
		return 1
	}
	return 1
}

func payloadInt(payload map[string]any, key string) (int, bool) {
	if payload == nil {
		return 0, false
	}
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(math.Round(n)), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
