// README: Pricing definitions: service rates, vehicle tiers, condition levels.
package pricing

// Tier is the vehicle size classification driving the base rate.
// Tiers are ordered: sedan < medium < large < xl.
type Tier string

const (
    TierSedan  Tier = "sedan"
    TierMedium Tier = "medium"
    TierLarge  Tier = "large"
    TierXL     Tier = "xl"
)

var tierRank = map[Tier]int{
    TierSedan:  0,
    TierMedium: 1,
    TierLarge:  2,
    TierXL:     3,
}

// Condition is the reported dirtiness level of the vehicle.
type Condition string

const (
    ConditionLight    Condition = "light"
    ConditionModerate Condition = "moderate"
    ConditionHeavy    Condition = "heavy"
    ConditionExtreme  Condition = "extreme"
)

// ServiceRate is the base rate card for one service type, keyed by vehicle tier.
type ServiceRate struct {
    ID         string
    Name       string
    BaseByTier map[Tier]int64
}

// AddOn is an optional extra with a flat price.
type AddOn struct {
    ID    string
    Name  string
    Price int64
}

// Breakdown is the computed price in minor currency units.
type Breakdown struct {
    Subtotal  int64
    Surcharge int64
    Tax       int64
    Total     int64
    Currency  string
}

// ValidTier reports whether t is a known vehicle tier.
func ValidTier(t Tier) bool {
    _, ok := tierRank[t]
    return ok
}

// TierAtLeast reports whether a is the same tier as b or larger.
func TierAtLeast(a, b Tier) bool {
    return tierRank[a] >= tierRank[b]
}
