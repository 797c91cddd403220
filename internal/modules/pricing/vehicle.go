// README: Vehicle tier classification from free-text make/model.
package pricing

import "strings"

// Pattern lists are checked largest tier first so "Ford Expedition" lands on xl
// before any medium/large pattern can match.
var xlPatterns = []string{
    "suburban", "tahoe", "escalade", "expedition", "yukon", "sequoia",
    "f-150", "f150", "silverado", "sierra", "ram", "tundra", "titan",
    "sprinter", "transit", "promaster", "van", "hummer",
}

var largePatterns = []string{
    "explorer", "highlander", "pilot", "4runner", "grand cherokee",
    "wrangler", "telluride", "palisade", "traverse", "atlas", "pathfinder",
    "odyssey", "sienna", "pacifica", "carnival", "suv", "truck", "pickup",
}

var mediumPatterns = []string{
    "cr-v", "crv", "rav4", "rogue", "escape", "equinox", "tucson",
    "forester", "outback", "cx-5", "cx5", "sportage", "compass",
    "crosstrek", "kona", "trailblazer", "wagon", "crossover",
}

// ClassifyVehicle infers the pricing tier from the vehicle make and model.
// Unrecognized vehicles default to sedan, the smallest tier, so classification
// can only ever raise the price floor, never invent one.
func ClassifyVehicle(make, model string) Tier {
    text := strings.ToLower(strings.TrimSpace(make + " " + model))
    for _, p := range xlPatterns {
        if strings.Contains(text, p) {
            return TierXL
        }
    }
    for _, p := range largePatterns {
        if strings.Contains(text, p) {
            return TierLarge
        }
    }
    for _, p := range mediumPatterns {
        if strings.Contains(text, p) {
            return TierMedium
        }
    }
    return TierSedan
}
