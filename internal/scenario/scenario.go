// Package scenario drives the multi-address cart walkthrough: one product
// with quantity spread across several shipping addresses, exercised as an
// ordered sequence of optimistic-concurrency-safe cart mutations.
package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"multiship/internal/artifact"
	"multiship/internal/commercetools"
	"multiship/internal/model"
	"multiship/internal/pipeline"
)

// Derived reference names threaded between steps.
const refLineItem = "line-item"

// Address keys referenced by shipping targets.
const (
	addressKeyBerlin = "address-berlin"
	addressKeyMunich = "address-munich"
)

// Walkthrough quantities. The initial allocation splits 100 units 60/40,
// the re-added line item splits 50/50, and the final step grows the
// quantity past the allocated total (growth is allowed; shrinking below
// the allocations is not).
const (
	lineItemQuantity = 100
	berlinQuantity   = 60
	munichQuantity   = 40
	readdSplit       = 50
	finalQuantity    = 120
)

// Resources holds the catalogue objects a run creates before touching carts.
type Resources struct {
	ProductType *commercetools.ProductType
	TaxCategory *commercetools.TaxCategory
	Product     *commercetools.Product
	SKU         string
}

// Setup creates the product type, tax category, and a published product.
// Keys and SKU are unique per run so repeated runs never collide.
// Each creation response is recorded as a snapshot.
func Setup(ctx context.Context, client *commercetools.Client, sink artifact.Sink, logger *slog.Logger) (*Resources, error) {
	runID := uuid.NewString()[:8]
	sku := "multiship-duck-" + runID

	pt, raw, err := client.CreateProductType(ctx, commercetools.ProductTypeDraft{
		Name:        "multiship-product-type-" + runID,
		Description: "product type for the multi-address walkthrough",
	})
	if err != nil {
		return nil, err
	}
	record(sink, logger, "product-type-created", raw)

	tc, raw, err := client.CreateTaxCategory(ctx, commercetools.TaxCategoryDraft{
		Name: "multiship-tax-" + runID,
		Rates: []commercetools.TaxRate{
			{Name: "standard", Amount: 0.19, IncludedInPrice: true, Country: "DE"},
		},
	})
	if err != nil {
		return nil, err
	}
	record(sink, logger, "tax-category-created", raw)

	product, raw, err := client.CreateProduct(ctx, commercetools.ProductDraft{
		Name:        commercetools.LocalizedString{"en": "Rubber Duck"},
		Slug:        commercetools.LocalizedString{"en": "rubber-duck-" + runID},
		ProductType: commercetools.Reference{TypeID: "product-type", ID: pt.ID},
		TaxCategory: &commercetools.Reference{TypeID: "tax-category", ID: tc.ID},
		MasterVariant: commercetools.ProductVariantDraft{
			SKU:    sku,
			Prices: []commercetools.PriceDraft{{Value: model.Cents("EUR", 1000)}},
		},
		Publish: true,
	})
	if err != nil {
		return nil, err
	}
	record(sink, logger, "product-created", raw)

	return &Resources{ProductType: pt, TaxCategory: tc, Product: product, SKU: sku}, nil
}

// Steps returns the ordered cart mutation list for a product SKU.
// The cart itself must already exist; its handle seeds the pipeline.
func Steps(client *commercetools.Client, sku string) []pipeline.Step {
	return []pipeline.Step{
		addLineItem(client, sku),
		addShippingAddresses(client),
		setShippingDetails(client),
		removeLineItem(client),
		readdLineItem(client, sku),
		changeQuantity(client),
	}
}

// Run executes the full walkthrough: catalogue setup, cart creation, the
// mutation pipeline, and a final cart read. Returns the final cart.
func Run(ctx context.Context, client *commercetools.Client, sink artifact.Sink, logger *slog.Logger) (*commercetools.Cart, error) {
	res, err := Setup(ctx, client, sink, logger)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	cart, raw, err := client.CreateCart(ctx, commercetools.CartDraft{Currency: "EUR", Country: "DE"})
	if err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	record(sink, logger, "cart-created", raw)

	p := pipeline.New(sink, logger, Steps(client, res.SKU)...)
	st, err := p.Run(ctx, pipeline.Handle{ID: cart.ID, Version: cart.Version})
	if err != nil {
		return nil, err
	}

	final, raw, err := client.GetCart(ctx, st.Handle().ID)
	if err != nil {
		return nil, fmt.Errorf("reading final cart: %w", err)
	}
	record(sink, logger, "cart-final", raw)

	return final, nil
}

// === Steps ===

// addLineItem puts the product on the cart and captures the generated
// line item id for later steps.
func addLineItem(client *commercetools.Client, sku string) pipeline.Step {
	return pipeline.Step{
		Name: "line-item-added",
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			h := st.Handle()
			actions := commercetools.NewUpdate().AddLineItem(sku, lineItemQuantity).Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}
			if len(cart.LineItems) == 0 {
				return nil, model.NewExtractionError("line item id")
			}

			return &pipeline.Result{
				Handle:   cartHandle(cart),
				Refs:     map[string]string{refLineItem: cart.LineItems[0].ID},
				Snapshot: raw,
			}, nil
		},
	}
}

// addShippingAddresses attaches both delivery addresses in one mutation.
func addShippingAddresses(client *commercetools.Client) pipeline.Step {
	return pipeline.Step{
		Name: "shipping-addresses-added",
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			h := st.Handle()
			actions := commercetools.NewUpdate().
				AddItemShippingAddress(berlinAddress()).
				AddItemShippingAddress(munichAddress()).
				Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}

			return &pipeline.Result{Handle: cartHandle(cart), Snapshot: raw}, nil
		},
	}
}

// setShippingDetails allocates the line item quantity across the two
// addresses: 60 to Berlin, 40 to Munich.
func setShippingDetails(client *commercetools.Client) pipeline.Step {
	return pipeline.Step{
		Name:  "shipping-details-set",
		Needs: []string{refLineItem},
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			lineItemID, err := st.Ref(refLineItem)
			if err != nil {
				return nil, err
			}

			h := st.Handle()
			actions := commercetools.NewUpdate().
				SetLineItemShippingDetails(lineItemID, []commercetools.ItemShippingTarget{
					{AddressKey: addressKeyBerlin, Quantity: berlinQuantity},
					{AddressKey: addressKeyMunich, Quantity: munichQuantity},
				}).
				Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}

			return &pipeline.Result{Handle: cartHandle(cart), Snapshot: raw}, nil
		},
	}
}

// removeLineItem empties the cart. The line item id stops being valid
// here, so the reference is invalidated rather than left for reuse.
func removeLineItem(client *commercetools.Client) pipeline.Step {
	return pipeline.Step{
		Name:  "line-item-removed",
		Needs: []string{refLineItem},
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			lineItemID, err := st.Ref(refLineItem)
			if err != nil {
				return nil, err
			}

			h := st.Handle()
			actions := commercetools.NewUpdate().RemoveLineItem(lineItemID).Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}

			return &pipeline.Result{
				Handle:      cartHandle(cart),
				Invalidates: []string{refLineItem},
				Snapshot:    raw,
			}, nil
		},
	}
}

// readdLineItem adds the product again with the per-address allocations
// inline in the same action, so shippingDetails is present from creation.
func readdLineItem(client *commercetools.Client, sku string) pipeline.Step {
	return pipeline.Step{
		Name: "line-item-readded",
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			h := st.Handle()
			actions := commercetools.NewUpdate().
				AddLineItemWithTargets(sku, lineItemQuantity, []commercetools.ItemShippingTarget{
					{AddressKey: addressKeyBerlin, Quantity: readdSplit},
					{AddressKey: addressKeyMunich, Quantity: readdSplit},
				}).
				Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}
			if len(cart.LineItems) == 0 {
				return nil, model.NewExtractionError("line item id")
			}
			if cart.LineItems[0].ShippingDetails == nil {
				return nil, model.NewExtractionError("line item shippingDetails")
			}

			return &pipeline.Result{
				Handle:   cartHandle(cart),
				Refs:     map[string]string{refLineItem: cart.LineItems[0].ID},
				Snapshot: raw,
			}, nil
		},
	}
}

// changeQuantity grows the line item quantity past the allocated total.
func changeQuantity(client *commercetools.Client) pipeline.Step {
	return pipeline.Step{
		Name:  "quantity-changed",
		Needs: []string{refLineItem},
		Do: func(ctx context.Context, st *pipeline.State) (*pipeline.Result, error) {
			lineItemID, err := st.Ref(refLineItem)
			if err != nil {
				return nil, err
			}

			h := st.Handle()
			actions := commercetools.NewUpdate().
				ChangeLineItemQuantity(lineItemID, finalQuantity).
				Actions()

			cart, raw, err := client.UpdateCart(ctx, h.ID, h.Version, actions)
			if err != nil {
				return nil, err
			}

			return &pipeline.Result{Handle: cartHandle(cart), Snapshot: raw}, nil
		},
	}
}

// === Helpers ===

func cartHandle(cart *commercetools.Cart) pipeline.Handle {
	return pipeline.Handle{ID: cart.ID, Version: cart.Version}
}

func berlinAddress() commercetools.Address {
	return commercetools.Address{
		Key:        addressKeyBerlin,
		FirstName:  "Alice",
		LastName:   "Example",
		Country:    "DE",
		City:       "Berlin",
		PostalCode: "10115",
		StreetName: "Invalidenstrasse",
	}
}

func munichAddress() commercetools.Address {
	return commercetools.Address{
		Key:        addressKeyMunich,
		FirstName:  "Bob",
		LastName:   "Example",
		Country:    "DE",
		City:       "Munich",
		PostalCode: "80331",
		StreetName: "Sendlinger Strasse",
	}
}

func record(sink artifact.Sink, logger *slog.Logger, name string, body []byte) {
	if sink == nil || len(body) == 0 {
		return
	}
	if err := sink.Record(name, body); err != nil {
		logger.Warn("snapshot not recorded", slog.String("step", name), slog.Any("error", err))
	}
}
