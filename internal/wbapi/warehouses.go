package wbapi

import (
	"context"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

// PopularWarehouses — основные склады WB с регионами; используется как
// fallback, когда API не вернул название, и для подсказки региона в кнопках.
var PopularWarehouses = map[int64]models.Warehouse{
	117501: {ID: 117501, Name: "Коледино", Region: "Московская область"},
	507:    {ID: 507, Name: "Подольск", Region: "Московская область"},
	120762: {ID: 120762, Name: "Электросталь", Region: "Московская область"},
	117986: {ID: 117986, Name: "Казань", Region: "Татарстан"},
	130744: {ID: 130744, Name: "Краснодар", Region: "Краснодарский край"},
	686:    {ID: 686, Name: "Новосибирск", Region: "Новосибирская область"},
	1733:   {ID: 1733, Name: "Екатеринбург", Region: "Свердловская область"},
	206348: {ID: 206348, Name: "Тула", Region: "Тульская область"},
	208277: {ID: 208277, Name: "Невинномысск", Region: "Ставропольский край"},
	301229: {ID: 301229, Name: "Котовск", Region: "Тамбовская область"},
	300461: {ID: 300461, Name: "Санкт-Петербург (Уткина Заводь)", Region: "Ленинградская область"},
	218623: {ID: 218623, Name: "Подольск 3", Region: "Московская область"},
	204939: {ID: 204939, Name: "Астана", Region: "Казахстан"},
	324108: {ID: 324108, Name: "Белая Дача", Region: "Московская область"},
}

type warehouseRow struct {
	ID       int64  `json:"ID"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	WorkTime string `json:"workTime"`
}

// Warehouses — список складов WB из supplies API.
func (c *Client) Warehouses(ctx context.Context) ([]models.Warehouse, error) {
	var rows []warehouseRow
	if err := c.get(ctx, c.cfg.SuppliesURL, "/api/v1/warehouses", EndpointWarehouses, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Warehouse, 0, len(rows))
	for _, r := range rows {
		w := models.Warehouse{ID: r.ID, Name: r.Name, Address: r.Address}
		if p, ok := PopularWarehouses[r.ID]; ok {
			w.Region = p.Region
		}
		out = append(out, w)
	}
	return out, nil
}
