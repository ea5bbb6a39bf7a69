package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// ExportOrdersToExcel writes all completed orders into an .xlsx report and
// returns the file path.
func (s *PostgresStorage) ExportOrdersToExcel(ctx context.Context, filename string) (string, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "User ID", "Region", "Language", "Currency", "Product",
		"Quantity", "Tier Price", "Unit Price", "Total", "Deposit",
		"Balance", "Payment Proof", "Shipping Address", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, order := range orders {
		data := []interface{}{
			order.ID,
			order.UserID,
			order.RegionID,
			order.Language,
			order.Currency,
			order.ProductName,
			order.Quantity,
			order.ChosenPrice,
			order.UnitPrice,
			order.TotalAmount,
			order.DepositAmount,
			order.BalanceAmount,
			order.PaymentProofRef,
			order.ShippingAddress,
			order.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", lastHeader, style)
	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filepath := fmt.Sprintf("reports/%s.xlsx", filename)
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return filepath, nil
}
