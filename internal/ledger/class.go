package ledger

import (
	"reflect"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bombverse/market-indexer/internal/details"
	"github.com/bombverse/market-indexer/internal/filter"
)

// Order statuses.
const (
	StatusListing = "listing"
	StatusSold    = "sold"
)

// HeroOrder is one marketplace order row for a hero token.
type HeroOrder struct {
	ID             int64           `meddler:"id,pk" json:"id"`
	TxHash         common.Hash     `meddler:"tx_hash,hash" json:"tx_hash"`
	BlockNumber    uint64          `meddler:"block_number" json:"block_number"`
	BlockTimestamp int64           `meddler:"block_timestamp" json:"block_timestamp"`
	LogIndex       uint64          `meddler:"log_index" json:"log_index"`
	Status         string          `meddler:"status" json:"status"`
	SellerAddress  *common.Address `meddler:"seller_address,address" json:"seller_address,omitempty"`
	BuyerAddress   *common.Address `meddler:"buyer_address,address" json:"buyer_address,omitempty"`
	Amount         string          `meddler:"amount" json:"amount"`
	TokenID        string          `meddler:"token_id" json:"token_id"`
	PayToken       string          `meddler:"pay_token" json:"pay_token"`
	Deleted        bool            `meddler:"deleted" json:"deleted"`
	Rarity         uint64          `meddler:"rarity" json:"rarity"`
	Level          uint64          `meddler:"level" json:"level"`
	Color          uint64          `meddler:"color" json:"color"`
	Skin           uint64          `meddler:"skin" json:"skin"`
	Stamina        uint64          `meddler:"stamina" json:"stamina"`
	Speed          uint64          `meddler:"speed" json:"speed"`
	BombSkin       uint64          `meddler:"bomb_skin" json:"bomb_skin"`
	BombCount      uint64          `meddler:"bomb_count" json:"bomb_count"`
	BombPower      uint64          `meddler:"bomb_power" json:"bomb_power"`
	BombRange      uint64          `meddler:"bomb_range" json:"bomb_range"`
	Abilities      string          `meddler:"abilities" json:"abilities"`
	AbilitiesHeroS string          `meddler:"abilities_hero_s" json:"abilities_hero_s"`
	CreatedAt      int64           `meddler:"created_at" json:"created_at"`
	UpdatedAt      int64           `meddler:"updated_at" json:"updated_at"`
}

// HouseOrder is one marketplace order row for a house token.
type HouseOrder struct {
	ID             int64           `meddler:"id,pk" json:"id"`
	TxHash         common.Hash     `meddler:"tx_hash,hash" json:"tx_hash"`
	BlockNumber    uint64          `meddler:"block_number" json:"block_number"`
	BlockTimestamp int64           `meddler:"block_timestamp" json:"block_timestamp"`
	LogIndex       uint64          `meddler:"log_index" json:"log_index"`
	Status         string          `meddler:"status" json:"status"`
	SellerAddress  *common.Address `meddler:"seller_address,address" json:"seller_address,omitempty"`
	BuyerAddress   *common.Address `meddler:"buyer_address,address" json:"buyer_address,omitempty"`
	Amount         string          `meddler:"amount" json:"amount"`
	TokenID        string          `meddler:"token_id" json:"token_id"`
	PayToken       string          `meddler:"pay_token" json:"pay_token"`
	Deleted        bool            `meddler:"deleted" json:"deleted"`
	Rarity         uint64          `meddler:"rarity" json:"rarity"`
	Capacity       uint64          `meddler:"capacity" json:"capacity"`
	Recovery       uint64          `meddler:"recovery" json:"recovery"`
	CreatedAt      int64           `meddler:"created_at" json:"created_at"`
	UpdatedAt      int64           `meddler:"updated_at" json:"updated_at"`
}

// Class describes one asset class: its table, row shape, query allow-lists
// and the class-specific attribute columns decoded from tokenDetail.
type Class struct {
	Name    string
	Table   string
	rowType reflect.Type

	filterColumns  []string
	orderColumns   []string
	decimalColumns []string

	// attributeColumns and attributeValues render the class-specific part
	// of the upsert column list from a decoded tokenDetail
	attributeColumns []string
	attributeValues  func(req *UpsertRequest) []any
}

// Hero is the class descriptor for the hero marketplace.
var Hero = &Class{
	Name:    "hero",
	Table:   "hero_orders",
	rowType: reflect.TypeOf(HeroOrder{}),
	filterColumns: []string{
		"status", "seller_address", "buyer_address", "tx_hash", "token_id",
		"rarity", "pay_token", "level", "amount", "stamina", "speed",
		"bomb_power", "bomb_count", "bomb_range", "abilities", "abilities_hero_s",
	},
	orderColumns: []string{
		"updated_at", "created_at", "block_number", "block_timestamp",
		"amount", "token_id", "rarity", "level",
	},
	decimalColumns: []string{"amount", "token_id"},
	attributeColumns: []string{
		"rarity", "level", "color", "skin", "stamina", "speed",
		"bomb_skin", "bomb_count", "bomb_power", "bomb_range",
		"abilities", "abilities_hero_s",
	},
	attributeValues: func(req *UpsertRequest) []any {
		hero := details.DecodeHero(req.Detail)
		return []any{
			hero.Rarity, hero.Level, hero.Color, hero.Skin, hero.Stamina, hero.Speed,
			hero.BombSkin, hero.BombCount, hero.BombPower, hero.BombRange,
			details.JoinAbilities(hero.Abilities), details.JoinAbilities(hero.AbilitiesHeroS),
		}
	},
}

// House is the class descriptor for the house marketplace.
var House = &Class{
	Name:    "house",
	Table:   "house_orders",
	rowType: reflect.TypeOf(HouseOrder{}),
	filterColumns: []string{
		"status", "seller_address", "buyer_address", "tx_hash", "token_id",
		"rarity", "pay_token", "amount", "capacity", "recovery",
	},
	orderColumns: []string{
		"updated_at", "created_at", "block_number", "block_timestamp",
		"amount", "token_id", "rarity", "capacity", "recovery",
	},
	decimalColumns: []string{"amount", "token_id"},
	attributeColumns: []string{"rarity", "capacity", "recovery"},
	attributeValues: func(req *UpsertRequest) []any {
		house := details.DecodeHouse(req.Detail)
		return []any{house.Rarity, house.Capacity, house.Recovery}
	},
}

// ByName returns the class descriptor for a class name.
func ByName(name string) (*Class, bool) {
	switch name {
	case Hero.Name:
		return Hero, true
	case House.Name:
		return House, true
	default:
		return nil, false
	}
}

// NewRow returns a pointer to an empty row struct of this class.
func (c *Class) NewRow() any {
	return reflect.New(c.rowType).Interface()
}

// NewRowSlice returns a pointer to an empty slice of row pointers, for
// meddler.QueryAll.
func (c *Class) NewRowSlice() any {
	return reflect.New(reflect.SliceOf(reflect.PointerTo(c.rowType))).Interface()
}

// deref unwraps a pointer-to-slice produced by NewRowSlice.
func deref(slicePtr any) any {
	return reflect.ValueOf(slicePtr).Elem().Interface()
}

// NewBuilder creates a query builder wired with this class's allow-lists.
func (c *Class) NewBuilder() *filter.Builder {
	return filter.NewBuilder(c.Table, c.filterColumns, c.orderColumns).
		DecimalColumns(c.decimalColumns...)
}
