// Package events decodes marketplace contract logs into typed domain events.
package events

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrMalformedEvent marks a log whose topic is recognized but whose data
// payload cannot be decoded.
var ErrMalformedEvent = errors.New("malformed marketplace event")

// Event topic hashes. All parameters are non-indexed, so everything lives
// in the data payload.
var (
	CreateOrderTopic       = crypto.Keccak256Hash([]byte("CreateOrder(uint256,uint256,uint256,address)"))
	SoldTopic              = crypto.Keccak256Hash([]byte("Sold(uint256,uint256,uint256,address,address)"))
	CancelOrderTopic       = crypto.Keccak256Hash([]byte("CancelOrder(uint256)"))
	OrderPriceUpdatedTopic = crypto.Keccak256Hash([]byte("OrderPriceUpdated(uint256,uint256,uint64)"))
)

// AllTopics returns every topic hash the decoder understands.
func AllTopics() []common.Hash {
	return []common.Hash{CreateOrderTopic, SoldTopic, CancelOrderTopic, OrderPriceUpdatedTopic}
}

const wordSize = 32

// Envelope carries the chain coordinates shared by every event variant.
type Envelope struct {
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// Event is implemented by all decoded marketplace event variants.
type Event interface {
	Coordinates() Envelope
}

func (e Envelope) Coordinates() Envelope { return e }

// CreateOrder is emitted when a token is listed for sale.
type CreateOrder struct {
	Envelope
	TokenID     *big.Int
	Price       *big.Int
	TokenDetail *big.Int
	Seller      common.Address
}

// Sold is emitted when a listed token is bought.
type Sold struct {
	Envelope
	TokenID     *big.Int
	Price       *big.Int
	TokenDetail *big.Int
	Seller      common.Address
	Buyer       common.Address
}

// CancelOrder is emitted when a listing is withdrawn by the seller.
type CancelOrder struct {
	Envelope
	TokenID *big.Int
}

// OrderPriceUpdated is emitted when a live listing's price changes.
type OrderPriceUpdated struct {
	Envelope
	TokenID   *big.Int
	NewPrice  *big.Int
	StartedAt uint64
}

// Decode converts a raw log into a typed event. It returns (nil, nil) for
// logs whose topic is not a marketplace event, and a wrapped
// ErrMalformedEvent when the data payload is too short or corrupt.
func Decode(log *types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}

	envelope := Envelope{
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}

	switch log.Topics[0] {
	case CreateOrderTopic:
		words, err := splitWords(log, 4) //nolint:mnd
		if err != nil {
			return nil, err
		}
		return &CreateOrder{
			Envelope:    envelope,
			TokenID:     wordToBig(words[0]),
			Price:       wordToBig(words[1]),
			TokenDetail: wordToBig(words[2]),
			Seller:      wordToAddress(words[3]),
		}, nil

	case SoldTopic:
		words, err := splitWords(log, 5) //nolint:mnd
		if err != nil {
			return nil, err
		}
		return &Sold{
			Envelope:    envelope,
			TokenID:     wordToBig(words[0]),
			Price:       wordToBig(words[1]),
			TokenDetail: wordToBig(words[2]),
			Seller:      wordToAddress(words[3]),
			Buyer:       wordToAddress(words[4]),
		}, nil

	case CancelOrderTopic:
		words, err := splitWords(log, 1)
		if err != nil {
			return nil, err
		}
		return &CancelOrder{
			Envelope: envelope,
			TokenID:  wordToBig(words[0]),
		}, nil

	case OrderPriceUpdatedTopic:
		words, err := splitWords(log, 3) //nolint:mnd
		if err != nil {
			return nil, err
		}
		return &OrderPriceUpdated{
			Envelope:  envelope,
			TokenID:   wordToBig(words[0]),
			NewPrice:  wordToBig(words[1]),
			StartedAt: wordToBig(words[2]).Uint64(),
		}, nil

	default:
		return nil, nil
	}
}

// splitWords validates the data length and slices it into 32-byte words.
func splitWords(log *types.Log, count int) ([][]byte, error) {
	expected := count * wordSize
	if len(log.Data) != expected {
		return nil, fmt.Errorf("%w: tx %s expected %d bytes of data, got %d",
			ErrMalformedEvent, log.TxHash.Hex(), expected, len(log.Data))
	}

	words := make([][]byte, count)
	for i := range count {
		words[i] = log.Data[i*wordSize : (i+1)*wordSize]
	}
	return words, nil
}

func wordToBig(word []byte) *big.Int {
	return new(big.Int).SetBytes(word)
}

func wordToAddress(word []byte) common.Address {
	return common.BytesToAddress(word)
}
