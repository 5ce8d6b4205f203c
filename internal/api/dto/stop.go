package dto

type StopResponse struct {
	ID         int64    `json:"id"`
	Label      string   `json:"label"`
	CustomerID int64    `json:"customer_id"`
	Address    string   `json:"address"`
	PostalCode string   `json:"postal_code"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
}

type ListStopsResponse struct {
	DriverID int64          `json:"driver_id"`
	Date     string         `json:"date"`
	Stops    []StopResponse `json:"stops"`
}
