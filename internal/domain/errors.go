package domain

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidLine          = errors.New("invalid line index")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMergeNotAllowed      = errors.New("merge not allowed")
	ErrUnauthorized         = errors.New("not authorized")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrSaleNotSaved         = errors.New("sale could not be saved")
	ErrFolioUnavailable     = errors.New("folio unavailable")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSaleNotFound         = errors.New("sale not found")
	ErrIngredientNotFound   = errors.New("ingredient not found")
	ErrInvalidCashCut       = errors.New("invalid cash cut")
	ErrStore                = errors.New("store unavailable")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrStaleOrder           = errors.New("order was changed by another terminal")
	ErrCustomerNotFound     = errors.New("customer not found")
)
