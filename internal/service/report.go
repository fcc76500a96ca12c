package service

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"warungpos/backend/internal/domain"
)

// DailyReport aggregates the valid transactions of one UTC calendar day.
// date is "2006-01-02"; empty means today. Void transactions never count.
func (s *Service) DailyReport(date string) (domain.DailyReport, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		day = time.Now().UTC().Truncate(24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailyReport{}, ErrInvalidInput
		}
		day = parsed
	}
	next := day.Add(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{
		Date:      day.Format("2006-01-02"),
		ByPayment: []domain.DailyReportPayment{},
	}
	byPayment := map[string]*domain.DailyReportPayment{}

	for _, tx := range s.state.Transactions {
		if tx.Status != domain.TxStatusValid {
			continue
		}
		if tx.Date.Before(day) || !tx.Date.Before(next) {
			continue
		}

		report.Transactions++
		report.GrossSales += tx.Subtotal
		report.Discount += tx.Discount
		report.NetSales += tx.Total
		for _, item := range tx.Items {
			report.EstimatedMargin += (item.Price - item.Cost) * int64(item.Qty)
		}
		report.EstimatedMargin -= tx.Discount

		entry, ok := byPayment[tx.PaymentMethod]
		if !ok {
			entry = &domain.DailyReportPayment{PaymentMethod: tx.PaymentMethod}
			byPayment[tx.PaymentMethod] = entry
		}
		entry.Transactions++
		entry.Total += tx.Total
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	sort.Slice(report.ByPayment, func(i, j int) bool {
		return report.ByPayment[i].PaymentMethod < report.ByPayment[j].PaymentMethod
	})
	return report, nil
}

// Receipt renders a transaction as a raw ESC/POS job plus a plain-text
// preview, for a local printer bridge to forward to the thermal printer.
func (s *Service) Receipt(transactionID string) (domain.ReceiptResponse, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.ReceiptResponse{}, ErrInvalidInput
	}

	tx, err := s.TransactionByID(transactionID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := []string{
		"WarungPOS",
		"========================",
		"TX: " + shortID(tx.ID),
		"Kasir: " + tx.CashierName,
		"Date: " + tx.Date.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, item := range tx.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Qty))
		lines = append(lines, fmt.Sprintf("  %d", item.Price*int64(item.Qty)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %d", tx.Subtotal),
		fmt.Sprintf("Diskon   : %d", tx.Discount),
		fmt.Sprintf("Total    : %d", tx.Total),
		fmt.Sprintf("Bayar    : %s", tx.PaymentMethod),
		"========================",
		"Terima kasih",
		"",
	)
	if tx.Status == domain.TxStatusVoid {
		lines = append(lines, "*** VOID ***", "")
	}

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		PreviewText:   strings.Join(lines, "\n"),
		FileName:      fmt.Sprintf("receipt-%s.bin", tx.ID),
	}, nil
}
