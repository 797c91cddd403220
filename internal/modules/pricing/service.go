// README: Pricing resolver. Pure quote computation with a server-side tier floor.
package pricing

import (
    "errors"
    "sort"
)

var (
    ErrUnknownService   = errors.New("unknown service type")
    ErrUnknownAddOn     = errors.New("unknown add-on")
    ErrUnknownCondition = errors.New("unknown condition level")
    ErrUnknownTier      = errors.New("unknown vehicle tier")
    ErrTierBelowFloor   = errors.New("vehicle tier below inferred floor")
)

// TaxQuoter is the opaque external tax computation. The resolver never does
// tax math itself.
type TaxQuoter interface {
    Quote(subtotal int64) int64
}

// FlatRateTax quotes tax as a flat share of the subtotal in basis points.
type FlatRateTax struct {
    BasisPoints int64
}

func (t FlatRateTax) Quote(subtotal int64) int64 {
    return subtotal * t.BasisPoints / 10000
}

type Resolver struct {
    tax      TaxQuoter
    currency string
}

func NewResolver(tax TaxQuoter, currency string) *Resolver {
    return &Resolver{tax: tax, currency: currency}
}

type QuoteRequest struct {
    ServiceType   string
    VehicleMake   string
    VehicleModel  string
    RequestedTier Tier // optional; empty means "use the inferred tier"
    AddOnIDs      []string
    Condition     Condition
}

// Quote computes the authoritative price for a booking request and returns the
// effective vehicle tier it was priced at. The tier inferred from make/model is
// a floor: a requested tier below it is rejected, so a client can never submit
// an under-priced amount. Deterministic, no side effects.
func (r *Resolver) Quote(req QuoteRequest) (Breakdown, Tier, error) {
    rate, ok := serviceRates[req.ServiceType]
    if !ok {
        return Breakdown{}, "", ErrUnknownService
    }

    floor := ClassifyVehicle(req.VehicleMake, req.VehicleModel)
    tier := req.RequestedTier
    if tier == "" {
        tier = floor
    }
    if !ValidTier(tier) {
        return Breakdown{}, "", ErrUnknownTier
    }
    if !TierAtLeast(tier, floor) {
        return Breakdown{}, "", ErrTierBelowFloor
    }

    subtotal := rate.BaseByTier[tier]
    for _, id := range req.AddOnIDs {
        a, ok := addOns[id]
        if !ok {
            return Breakdown{}, "", ErrUnknownAddOn
        }
        subtotal += a.Price
    }

    bp, ok := conditionSurchargeBP[req.Condition]
    if !ok {
        return Breakdown{}, "", ErrUnknownCondition
    }
    surcharge := subtotal * bp / 10000

    taxable := subtotal + surcharge
    tax := int64(0)
    if r.tax != nil {
        tax = r.tax.Quote(taxable)
    }

    return Breakdown{
        Subtotal:  subtotal,
        Surcharge: surcharge,
        Tax:       tax,
        Total:     taxable + tax,
        Currency:  r.currency,
    }, tier, nil
}

// Services lists the catalog's service types in stable order, for the
// read-only catalog endpoint.
func Services() []ServiceRate {
    out := make([]ServiceRate, 0, len(serviceRates))
    for _, s := range serviceRates {
        out = append(out, s)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

// AddOns lists the add-on catalog in stable order.
func AddOns() []AddOn {
    out := make([]AddOn, 0, len(addOns))
    for _, a := range addOns {
        out = append(out, a)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}
