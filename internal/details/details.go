// Package details decodes the bit-packed tokenDetail word emitted by the
// marketplace contracts into per-class asset attributes.
package details

import (
	"math/big"
	"strconv"
	"strings"
)

// Bit positions shared by all asset classes.
const (
	idShift     = 0
	idBits      = 30
	indexShift  = 30
	indexBits   = 10
	rarityShift = 40
	rarityBits  = 5

	nftBlockShift = 200
	nftBlockBits  = 56
)

// Hero attribute bit positions.
const (
	levelShift     = 45
	colorShift     = 50
	skinShift      = 55
	staminaShift   = 60
	speedShift     = 65
	bombSkinShift  = 70
	bombCountShift = 75
	bombPowerShift = 80
	bombRangeShift = 85
	attrBits       = 5

	abilityShift  = 90
	abilitySShift = 105
	abilityCount  = 15
)

// House attribute bit positions.
const (
	capacityShift = 45
	capacityBits  = 8
	recoveryShift = 53
	recoveryBits  = 8
)

// HeroDetails holds the decoded attributes of a hero token.
type HeroDetails struct {
	ID             uint64
	Index          uint64
	Rarity         uint64
	Level          uint64
	Color          uint64
	Skin           uint64
	Stamina        uint64
	Speed          uint64
	BombSkin       uint64
	BombCount      uint64
	BombPower      uint64
	BombRange      uint64
	Abilities      []uint64
	AbilitiesHeroS []uint64
	NFTBlockNumber uint64
}

// HouseDetails holds the decoded attributes of a house token.
type HouseDetails struct {
	ID             uint64
	Index          uint64
	Rarity         uint64
	Capacity       uint64
	Recovery       uint64
	NFTBlockNumber uint64
}

// DecodeHero decodes a hero tokenDetail word.
func DecodeHero(detail *big.Int) HeroDetails {
	return HeroDetails{
		ID:             extract(detail, idShift, idBits),
		Index:          extract(detail, indexShift, indexBits),
		Rarity:         extract(detail, rarityShift, rarityBits),
		Level:          extract(detail, levelShift, attrBits),
		Color:          extract(detail, colorShift, attrBits),
		Skin:           extract(detail, skinShift, attrBits),
		Stamina:        extract(detail, staminaShift, attrBits),
		Speed:          extract(detail, speedShift, attrBits),
		BombSkin:       extract(detail, bombSkinShift, attrBits),
		BombCount:      extract(detail, bombCountShift, attrBits),
		BombPower:      extract(detail, bombPowerShift, attrBits),
		BombRange:      extract(detail, bombRangeShift, attrBits),
		Abilities:      extractAbilities(detail, abilityShift),
		AbilitiesHeroS: extractAbilities(detail, abilitySShift),
		NFTBlockNumber: extract(detail, nftBlockShift, nftBlockBits),
	}
}

// DecodeHouse decodes a house tokenDetail word.
func DecodeHouse(detail *big.Int) HouseDetails {
	return HouseDetails{
		ID:             extract(detail, idShift, idBits),
		Index:          extract(detail, indexShift, indexBits),
		Rarity:         extract(detail, rarityShift, rarityBits),
		Capacity:       extract(detail, capacityShift, capacityBits),
		Recovery:       extract(detail, recoveryShift, recoveryBits),
		NFTBlockNumber: extract(detail, nftBlockShift, nftBlockBits),
	}
}

// JoinAbilities renders ability numbers as a comma-delimited string for storage.
func JoinAbilities(abilities []uint64) string {
	if len(abilities) == 0 {
		return ""
	}

	parts := make([]string, len(abilities))
	for i, a := range abilities {
		parts[i] = strconv.FormatUint(a, 10)
	}
	return strings.Join(parts, ",")
}

// extract returns bits [shift, shift+bits) of detail as a uint64.
func extract(detail *big.Int, shift, bits uint) uint64 {
	v := new(big.Int).Rsh(detail, shift)
	mask := new(big.Int).Lsh(big.NewInt(1), bits)
	mask.Sub(mask, big.NewInt(1))
	v.And(v, mask)
	return v.Uint64()
}

// extractAbilities returns the ability numbers whose bits are set in the
// 15-bit bitmask starting at shift. Ability n maps to bit shift+n-1.
func extractAbilities(detail *big.Int, shift uint) []uint64 {
	var abilities []uint64
	for n := uint(1); n <= abilityCount; n++ {
		if detail.Bit(int(shift+n-1)) == 1 {
			abilities = append(abilities, uint64(n))
		}
	}
	return abilities
}
