package commercetools

import "multiship/internal/model"

// LocalizedString maps locale tags to translated text, e.g. {"en": "Duck"}.
type LocalizedString map[string]string

// Reference addresses another resource by type id and id.
type Reference struct {
	TypeID string `json:"typeId"`
	ID     string `json:"id"`
}

// === Catalogue resources ===

// ProductType describes the shape of products that reference it.
type ProductType struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Name    string `json:"name"`
	Key     string `json:"key,omitempty"`
}

// ProductTypeDraft is the creation payload for a product type.
type ProductTypeDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Key         string `json:"key,omitempty"`
}

// TaxRate is a single country rate inside a tax category.
type TaxRate struct {
	Name            string  `json:"name"`
	Amount          float64 `json:"amount"`
	IncludedInPrice bool    `json:"includedInPrice"`
	Country         string  `json:"country"`
}

// TaxCategory groups tax rates; products reference it by id.
type TaxCategory struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Name    string `json:"name"`
}

// TaxCategoryDraft is the creation payload for a tax category.
type TaxCategoryDraft struct {
	Name  string    `json:"name"`
	Key   string    `json:"key,omitempty"`
	Rates []TaxRate `json:"rates"`
}

// PriceDraft attaches an amount to a product variant.
type PriceDraft struct {
	Value model.Money `json:"value"`
}

// ProductVariantDraft is the master variant of a product draft.
type ProductVariantDraft struct {
	SKU    string       `json:"sku"`
	Prices []PriceDraft `json:"prices,omitempty"`
}

// ProductDraft is the creation payload for a product.
type ProductDraft struct {
	Name          LocalizedString     `json:"name"`
	Slug          LocalizedString     `json:"slug"`
	ProductType   Reference           `json:"productType"`
	TaxCategory   *Reference          `json:"taxCategory,omitempty"`
	MasterVariant ProductVariantDraft `json:"masterVariant"`
	Publish       bool                `json:"publish"`
}

// Product is the platform's product representation; only the fields the
// pipeline threads forward are modeled.
type Product struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// === Carts ===

// Address is a shipping address. Key is how cart line items target it.
type Address struct {
	Key        string `json:"key"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Country    string `json:"country"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	StreetName string `json:"streetName,omitempty"`
}

// ItemShippingTarget allocates part of a line item's quantity to one of
// the cart's item shipping addresses.
type ItemShippingTarget struct {
	AddressKey string `json:"addressKey"`
	Quantity   int64  `json:"quantity"`
}

// ItemShippingDetails reports a line item's per-address allocations.
// Valid is false while the targets don't sum to the line item quantity.
type ItemShippingDetails struct {
	Targets []ItemShippingTarget `json:"targets"`
	Valid   bool                 `json:"valid"`
}

// ItemShippingDetailsDraft sets per-address allocations in a mutation.
type ItemShippingDetailsDraft struct {
	Targets []ItemShippingTarget `json:"targets"`
}

// LineItem is a product entry on a cart. ID is generated by the platform
// and becomes invalid once the line item is removed.
type LineItem struct {
	ID              string               `json:"id"`
	ProductID       string               `json:"productId"`
	Quantity        int64                `json:"quantity"`
	TotalPrice      model.Money          `json:"totalPrice"`
	ShippingDetails *ItemShippingDetails `json:"shippingDetails,omitempty"`
}

// Cart is the platform's cart representation. Version is the optimistic
// concurrency counter every mutation must echo back.
type Cart struct {
	ID                    string      `json:"id"`
	Version               int64       `json:"version"`
	LineItems             []LineItem  `json:"lineItems"`
	ItemShippingAddresses []Address   `json:"itemShippingAddresses,omitempty"`
	TotalPrice            model.Money `json:"totalPrice"`
	CartState             string      `json:"cartState,omitempty"`
}

// CartDraft is the creation payload for a cart.
type CartDraft struct {
	Currency string `json:"currency"`
	Country  string `json:"country,omitempty"`
}

// === Errors ===

// platformError is the platform's error envelope.
type platformError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Errors     []struct {
		Code           string `json:"code"`
		Message        string `json:"message"`
		CurrentVersion int64  `json:"currentVersion,omitempty"`
	} `json:"errors"`
}
