package models

// StockItem — остаток одного артикула на одном складе (иммутабельный снимок).
type StockItem struct {
	Sku             string
	Barcode         string
	NmID            int64
	WarehouseID     int64
	WarehouseName   string
	Quantity        int
	InWayToClient   int
	InWayFromClient int
	ProductName     string
}

// Available — доступно для перемещения.
func (s StockItem) Available() int {
	if s.Quantity <= s.InWayToClient {
		return 0
	}
	return s.Quantity - s.InWayToClient
}

// SkuStockSummary — остатки артикула, сгруппированные по складам.
type SkuStockSummary struct {
	Sku           string
	ProductName   string
	NmID          int64
	TotalQuantity int
	Warehouses    []StockItem
}

// Warehouse — склад WB из реестра.
type Warehouse struct {
	ID      int64
	Name    string
	Region  string
	Address string
}
