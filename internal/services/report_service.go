package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/phoneshop/backend/internal/models"
)

// ReportService derives read-only summaries from the catalog and the
// sales ledger. It never mutates; reports may trail concurrent sales
// slightly, which is acceptable for dashboard purposes.
type ReportService struct {
	db *sql.DB
}

func NewReportService(db *sql.DB) *ReportService {
	viper.SetDefault("inventory.low_stock_threshold", 5)
	return &ReportService{db: db}
}

// ModelSales is the per-model slice of a sales summary.
type ModelSales struct {
	Model     string  `json:"model"`
	UnitsSold int     `json:"units_sold"`
	Revenue   float64 `json:"revenue"`
}

// SalesSummary aggregates the whole sales ledger.
type SalesSummary struct {
	TotalRevenue float64      `json:"total_revenue"`
	TotalUnits   int          `json:"total_units"`
	ByModel      []ModelSales `json:"by_model"`
}

// TotalInventoryValue returns the sum of price times quantity over the
// whole catalog. Zero for an empty catalog.
func (s *ReportService) TotalInventoryValue(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(price * quantity), 0) FROM phones`).Scan(&total)
	if err != nil {
		return 0, storeError(err)
	}
	return total, nil
}

// LowStockItems returns catalog entries at or below the threshold.
func (s *ReportService) LowStockItems(ctx context.Context, threshold int) ([]models.Phone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, brand, price, quantity, last_updated
		FROM phones WHERE quantity <= $1 ORDER BY quantity, model`, threshold)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	phones := []models.Phone{}
	for rows.Next() {
		var p models.Phone
		if err := rows.Scan(&p.ID, &p.Model, &p.Brand, &p.Price, &p.Quantity, &p.LastUpdated); err != nil {
			return nil, storeError(err)
		}
		phones = append(phones, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return phones, nil
}

// Summary computes totals and the per-model breakdown over all sales.
func (s *ReportService) Summary(ctx context.Context) (*SalesSummary, error) {
	summary := &SalesSummary{ByModel: []ModelSales{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(quantity_sold), 0)
		FROM sales`).Scan(&summary.TotalRevenue, &summary.TotalUnits)
	if err != nil {
		return nil, storeError(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, SUM(quantity_sold), SUM(total_amount)
		FROM sales GROUP BY model ORDER BY model`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var m ModelSales
		if err := rows.Scan(&m.Model, &m.UnitsSold, &m.Revenue); err != nil {
			return nil, storeError(err)
		}
		summary.ByModel = append(summary.ByModel, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return summary, nil
}

// SalesInRange returns sales with sale_date inside [start, end].
func (s *ReportService) SalesInRange(ctx context.Context, start, end time.Time) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_id, model, quantity_sold, unit_price, total_amount, payment_method, customer_name, customer_phone, notes, sold_by, sale_date
		FROM sales
		WHERE sale_date BETWEEN $1 AND $2
		ORDER BY sale_date`, start, end)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		var sale models.Sale
		if err := rows.Scan(&sale.ID, &sale.ReceiptID, &sale.Model, &sale.QuantitySold, &sale.UnitPrice,
			&sale.TotalAmount, &sale.PaymentMethod, &sale.CustomerName, &sale.CustomerPhone,
			&sale.Notes, &sale.SoldBy, &sale.SaleDate); err != nil {
			return nil, storeError(err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return sales, nil
}

// InventoryLog returns the most recent audit transactions.
func (s *ReportService) InventoryLog(ctx context.Context, limit int) ([]models.InventoryTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, kind, delta, quantity_before, quantity_after, performed_by, notes, created_at
		FROM transactions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	txns := []models.InventoryTransaction{}
	for rows.Next() {
		var t models.InventoryTransaction
		if err := rows.Scan(&t.ID, &t.Model, &t.Kind, &t.Delta, &t.QuantityBefore, &t.QuantityAfter,
			&t.PerformedBy, &t.Notes, &t.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return txns, nil
}

// HandleInventoryValue handles the total-value report
// @Summary Total inventory value
// @Description Sum of price times quantity over the catalog
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]float64
// @Failure 500 {object} ErrorResponse
// @Router /reports/inventory-value [get]
func (s *ReportService) HandleInventoryValue(w http.ResponseWriter, r *http.Request) {
	total, err := s.TotalInventoryValue(r.Context())
	if err != nil {
		log.Printf("[REPORT] Inventory value failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"total_value": total})
}

// HandleLowStock handles the low-stock report
// @Summary Low stock items
// @Description Catalog entries at or below the threshold (default 5)
// @Tags reports
// @Produce json
// @Param threshold query int false "Stock threshold"
// @Success 200 {object} object{items=[]models.Phone,threshold=int}
// @Failure 500 {object} ErrorResponse
// @Router /reports/low-stock [get]
func (s *ReportService) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := viper.GetInt("inventory.low_stock_threshold")
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			SendErrorResponse(w, "Invalid threshold", http.StatusBadRequest, nil)
			return
		}
		threshold = parsed
	}

	items, err := s.LowStockItems(r.Context(), threshold)
	if err != nil {
		log.Printf("[REPORT] Low stock failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items":     items,
		"threshold": threshold,
	})
}

// HandleSalesSummary handles the sales summary report
// @Summary Sales summary
// @Description Total revenue, total units and per-model breakdown
// @Tags reports
// @Produce json
// @Success 200 {object} SalesSummary
// @Failure 500 {object} ErrorResponse
// @Router /reports/sales-summary [get]
func (s *ReportService) HandleSalesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Summary(r.Context())
	if err != nil {
		log.Printf("[REPORT] Sales summary failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// parseDateRange reads start/end query parameters. Dates without a time
// component span the whole day, end inclusive.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}

	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	// Extend end to the last instant of the day so the range is inclusive.
	end = end.Add(24*time.Hour - time.Nanosecond)
	return start, end, nil
}

// HandleSalesInRange handles the date-range sales report
// @Summary Sales in a date range
// @Description All sales with sale_date within [start, end] inclusive
// @Tags reports
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} object{sales=[]models.Sale,count=int}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /reports/sales [get]
func (s *ReportService) HandleSalesInRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	sales, err := s.SalesInRange(r.Context(), start, end)
	if err != nil {
		log.Printf("[REPORT] Sales range failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sales": sales,
		"count": len(sales),
	})
}

// HandleInventoryLog handles the audit log report
// @Summary Inventory audit log
// @Description Recent inventory transactions, newest first
// @Tags reports
// @Produce json
// @Param limit query int false "Number of entries to return (default: 50, max: 500)"
// @Success 200 {object} object{transactions=[]models.InventoryTransaction,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /reports/transactions [get]
func (s *ReportService) HandleInventoryLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}

	txns, err := s.InventoryLog(r.Context(), limit)
	if err != nil {
		log.Printf("[REPORT] Inventory log failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"transactions": txns,
		"count":        len(txns),
	})
}

// HandleExportInventory handles catalog CSV export
// @Summary Export the catalog as CSV
// @Description Stream the full catalog as a CSV file
// @Tags export
// @Produce text/csv
// @Success 200 {file} string
// @Failure 500 {object} ErrorResponse
// @Router /export/inventory.csv [get]
func (s *ReportService) HandleExportInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT model, brand, price, quantity, last_updated
		FROM phones ORDER BY model`)
	if err != nil {
		log.Printf("[REPORT] Inventory export failed: %v", err)
		SendDomainError(w, storeError(err))
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory_export.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"model", "brand", "price", "quantity", "last_updated"})
	for rows.Next() {
		var (
			model, brand string
			price        float64
			quantity     int
			lastUpdated  time.Time
		)
		if err := rows.Scan(&model, &brand, &price, &quantity, &lastUpdated); err != nil {
			log.Printf("[REPORT] Inventory export scan failed: %v", err)
			return
		}
		cw.Write([]string{
			model,
			brand,
			strconv.FormatFloat(price, 'f', 2, 64),
			strconv.Itoa(quantity),
			lastUpdated.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
}

// HandleExportSales handles sales CSV export
// @Summary Export sales as CSV
// @Description Stream sales within [start, end] as a CSV file
// @Tags export
// @Produce text/csv
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Success 200 {file} string
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /export/sales.csv [get]
func (s *ReportService) HandleExportSales(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	sales, err := s.SalesInRange(r.Context(), start, end)
	if err != nil {
		log.Printf("[REPORT] Sales export failed: %v", err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sales_export.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"receipt_id", "model", "quantity_sold", "unit_price", "total_amount", "payment_method", "customer_name", "sold_by", "sale_date"})
	for _, sale := range sales {
		cw.Write([]string{
			sale.ReceiptID,
			sale.Model,
			strconv.Itoa(sale.QuantitySold),
			strconv.FormatFloat(sale.UnitPrice, 'f', 2, 64),
			strconv.FormatFloat(sale.TotalAmount, 'f', 2, 64),
			sale.PaymentMethod,
			sale.CustomerName,
			sale.SoldBy,
			sale.SaleDate.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
}
