package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssetClass groups instruments for exposure reporting
type AssetClass string

const (
	AssetClassEquity      AssetClass = "equity"
	AssetClassFixedIncome AssetClass = "fixed_income"
	AssetClassFund        AssetClass = "fund"
	AssetClassCash        AssetClass = "cash"
	AssetClassRealEstate  AssetClass = "real_estate"
	AssetClassCommodity   AssetClass = "commodity"
	AssetClassAlternative AssetClass = "alternative"
)

// Instrument is a closed set of instrument kinds. Each variant carries only the
// fields it needs; behaviour is dispatched with type switches in this file.
type Instrument interface {
	isInstrument()
}

// Equity is a listed share
type Equity struct {
	Sector string `json:"sector,omitempty"`
}

// FundKind distinguishes exchange traded from mutual funds
type FundKind string

const (
	FundETF        FundKind = "etf"
	FundMutualFund FundKind = "mutual_fund"
)

// Fund is a pooled vehicle
type Fund struct {
	Kind FundKind `json:"kind"`
}

// Bond is a fixed income instrument
type Bond struct {
	Coupon    float64   `json:"coupon"`
	Maturity  time.Time `json:"maturity"`
	FaceValue float64   `json:"face_value"`
}

// Cash is a cash balance or money market position
type Cash struct{}

// RealAsset is property or another illiquid real asset
type RealAsset struct {
	Kind string `json:"kind,omitempty"`
}

// Commodity is a physical commodity or commodity tracker
type Commodity struct{}

// Crypto is a crypto asset
type Crypto struct{}

func (Equity) isInstrument()    {}
func (Fund) isInstrument()      {}
func (Bond) isInstrument()      {}
func (Cash) isInstrument()      {}
func (RealAsset) isInstrument() {}
func (Commodity) isInstrument() {}
func (Crypto) isInstrument()    {}

// YearsToMaturity returns the remaining life of the bond at asOf, floored at 0.
func (b Bond) YearsToMaturity(asOf time.Time) float64 {
	if b.Maturity.IsZero() || !b.Maturity.After(asOf) {
		return 0
	}
	return b.Maturity.Sub(asOf).Hours() / (24 * 365.25)
}

// ClassOf returns the asset class of an instrument
func ClassOf(inst Instrument) AssetClass {
	switch inst.(type) {
	case Equity:
		return AssetClassEquity
	case Fund:
		return AssetClassFund
	case Bond:
		return AssetClassFixedIncome
	case Cash:
		return AssetClassCash
	case RealAsset:
		return AssetClassRealEstate
	case Commodity:
		return AssetClassCommodity
	default:
		return AssetClassAlternative
	}
}

// KindOf returns the storage name of the variant
func KindOf(inst Instrument) string {
	switch v := inst.(type) {
	case Equity:
		return "equity"
	case Fund:
		return string(v.Kind)
	case Bond:
		return "bond"
	case Cash:
		return "cash"
	case RealAsset:
		return "real_estate"
	case Commodity:
		return "commodity"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// DefaultLiquidity is the liquidity tag (0 = illiquid, 10 = cash) assumed for
// an instrument kind when the catalog carries no explicit tag.
func DefaultLiquidity(inst Instrument) float64 {
	switch v := inst.(type) {
	case Cash:
		return 10
	case Equity:
		return 9
	case Fund:
		if v.Kind == FundMutualFund {
			return 7
		}
		return 8
	case Bond:
		return 6
	case Crypto:
		return 5
	case Commodity:
		return 4
	case RealAsset:
		return 2
	default:
		return 5
	}
}

// SectorOf returns the equity sector, or "" for other variants
func SectorOf(inst Instrument) string {
	if e, ok := inst.(Equity); ok {
		return e.Sector
	}
	return ""
}

// InstrumentAttributes are the flat stored attributes an Instrument is rebuilt from
type InstrumentAttributes struct {
	Sector    string
	Coupon    float64
	Maturity  time.Time
	FaceValue float64
	Detail    string
}

// ParseInstrument rebuilds a variant from its stored kind and attributes
func ParseInstrument(kind string, attrs InstrumentAttributes) (Instrument, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "equity", "stock":
		return Equity{Sector: attrs.Sector}, nil
	case "etf":
		return Fund{Kind: FundETF}, nil
	case "mutual_fund":
		return Fund{Kind: FundMutualFund}, nil
	case "bond":
		return Bond{Coupon: attrs.Coupon, Maturity: attrs.Maturity, FaceValue: attrs.FaceValue}, nil
	case "cash":
		return Cash{}, nil
	case "real_estate", "real_asset":
		return RealAsset{Kind: attrs.Detail}, nil
	case "commodity":
		return Commodity{}, nil
	case "crypto":
		return Crypto{}, nil
	}
	return nil, fmt.Errorf("unknown instrument kind %q", kind)
}

// InstrumentInfo is catalog metadata for one instrument
type InstrumentInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Instrument Instrument `json:"-"`
	// Liquidity overrides DefaultLiquidity when set
	Liquidity *float64 `json:"liquidity,omitempty"`
}

// LiquidityTag returns the explicit tag or the kind default.
func (i InstrumentInfo) LiquidityTag() float64 {
	if i.Liquidity != nil {
		return *i.Liquidity
	}
	return DefaultLiquidity(i.Instrument)
}
