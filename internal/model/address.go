package model

// AddressResponse represents response for GET /wallet/address
type AddressResponse struct {
	Address string `json:"address"`
	Network string `json:"network"`
	QR      string `json:"QR"` // base64 PNG
}
