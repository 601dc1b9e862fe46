package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Historical prices only change at the tip of the range
	TTLPriceSeries = 6 * time.Hour

	// Reports and projections depend on the latest prices and transactions
	TTLReport     = 15 * time.Minute
	TTLSimulation = time.Hour
)
