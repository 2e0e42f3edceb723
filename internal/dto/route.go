package dto

// RouteRequest creates or updates a route.
type RouteRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	WarehouseID *string `json:"warehouseId"`
	Active      *bool   `json:"active"`
}

// RouteCustomerRequest places a customer on a route. The sequence number is
// caller-supplied ordering and is echoed back verbatim.
type RouteCustomerRequest struct {
	CustomerID     string `json:"customerId" validate:"required"`
	CustomerName   string `json:"customerName" validate:"required,min=2,max=200"`
	SequenceNumber int    `json:"sequenceNumber" validate:"min=0"`
}

// RouteCustomerUpdateRequest edits the stored ordering or display name.
type RouteCustomerUpdateRequest struct {
	CustomerName   *string `json:"customerName" validate:"omitempty,min=2,max=200"`
	SequenceNumber *int    `json:"sequenceNumber" validate:"omitempty,min=0"`
}
