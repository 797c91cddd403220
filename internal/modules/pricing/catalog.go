// README: Static rate catalog. Bundled as data so quoting needs no network call.
package pricing

// serviceRates is the base rate card, minor units per service type and tier.
var serviceRates = map[string]ServiceRate{
    "exterior_wash": {
        ID:   "exterior_wash",
        Name: "Exterior Wash & Dry",
        BaseByTier: map[Tier]int64{
            TierSedan:  4500,
            TierMedium: 5500,
            TierLarge:  6500,
            TierXL:     8000,
        },
    },
    "interior_detail": {
        ID:   "interior_detail",
        Name: "Interior Detail",
        BaseByTier: map[Tier]int64{
            TierSedan:  8500,
            TierMedium: 10000,
            TierLarge:  12000,
            TierXL:     15000,
        },
    },
    "full_detail": {
        ID:   "full_detail",
        Name: "Full Detail",
        BaseByTier: map[Tier]int64{
            TierSedan:  14500,
            TierMedium: 17000,
            TierLarge:  20000,
            TierXL:     24500,
        },
    },
}

var addOns = map[string]AddOn{
    "wax_seal":          {ID: "wax_seal", Name: "Wax & Seal", Price: 3000},
    "engine_bay":        {ID: "engine_bay", Name: "Engine Bay Cleaning", Price: 2500},
    "pet_hair":          {ID: "pet_hair", Name: "Pet Hair Removal", Price: 2000},
    "odor_treatment":    {ID: "odor_treatment", Name: "Odor Treatment", Price: 3500},
    "headlight_restore": {ID: "headlight_restore", Name: "Headlight Restoration", Price: 4000},
}

// conditionSurchargeBP is the condition upcharge in basis points of the subtotal.
var conditionSurchargeBP = map[Condition]int64{
    ConditionLight:    0,
    ConditionModerate: 1500,
    ConditionHeavy:    3000,
    ConditionExtreme:  5000,
}
