package commercetools

// Cart mutations are expressed as ordered update actions posted together
// with the cart's current version. UpdateBuilder constructs them as typed
// values rather than spliced text, so a malformed substitution cannot
// reach the wire. Actions execute in order on the platform side.

// CartUpdateAction is one typed cart mutation. Action selects the variant;
// only the fields that variant uses are populated.
type CartUpdateAction struct {
	Action          string                    `json:"action"`
	SKU             string                    `json:"sku,omitempty"`
	Quantity        *int64                    `json:"quantity,omitempty"`
	LineItemID      string                    `json:"lineItemId,omitempty"`
	Address         *Address                  `json:"address,omitempty"`
	ShippingDetails *ItemShippingDetailsDraft `json:"shippingDetails,omitempty"`
}

// CartUpdate is the full mutation request body.
type CartUpdate struct {
	Version int64              `json:"version"`
	Actions []CartUpdateAction `json:"actions"`
}

// UpdateBuilder constructs cart update requests.
// Uses fluent API pattern for readability.
type UpdateBuilder struct {
	actions []CartUpdateAction
}

// NewUpdate creates a new update builder.
func NewUpdate() *UpdateBuilder {
	return &UpdateBuilder{actions: make([]CartUpdateAction, 0)}
}

// AddLineItem adds a product to the cart by SKU.
func (b *UpdateBuilder) AddLineItem(sku string, quantity int64) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:   "addLineItem",
		SKU:      sku,
		Quantity: &quantity,
	})
	return b
}

// AddLineItemWithTargets adds a product with its per-address shipping
// allocations set in the same action, so the line item carries
// shippingDetails from creation without a follow-up mutation.
func (b *UpdateBuilder) AddLineItemWithTargets(sku string, quantity int64, targets []ItemShippingTarget) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:          "addLineItem",
		SKU:             sku,
		Quantity:        &quantity,
		ShippingDetails: &ItemShippingDetailsDraft{Targets: targets},
	})
	return b
}

// AddItemShippingAddress attaches a shipping address to the cart.
// The address key is what shipping targets reference.
func (b *UpdateBuilder) AddItemShippingAddress(addr Address) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:  "addItemShippingAddress",
		Address: &addr,
	})
	return b
}

// SetLineItemShippingDetails replaces a line item's per-address allocations.
func (b *UpdateBuilder) SetLineItemShippingDetails(lineItemID string, targets []ItemShippingTarget) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:          "setLineItemShippingDetails",
		LineItemID:      lineItemID,
		ShippingDetails: &ItemShippingDetailsDraft{Targets: targets},
	})
	return b
}

// RemoveLineItem removes a line item entirely. Its id must not be used in
// any later action.
func (b *UpdateBuilder) RemoveLineItem(lineItemID string) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:     "removeLineItem",
		LineItemID: lineItemID,
	})
	return b
}

// ChangeLineItemQuantity sets a line item's quantity. The platform rejects
// reductions below the quantity already allocated to shipping targets.
func (b *UpdateBuilder) ChangeLineItemQuantity(lineItemID string, quantity int64) *UpdateBuilder {
	b.actions = append(b.actions, CartUpdateAction{
		Action:     "changeLineItemQuantity",
		LineItemID: lineItemID,
		Quantity:   &quantity,
	})
	return b
}

// Actions returns the accumulated action list in insertion order.
func (b *UpdateBuilder) Actions() []CartUpdateAction {
	return b.actions
}
