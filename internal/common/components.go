package common

const (
	ComponentHeroSubscriber  = "hero-subscriber"
	ComponentHouseSubscriber = "house-subscriber"
	ComponentCursorStore     = "cursor-store"
	ComponentLedger          = "ledger"
	ComponentChainClient     = "chain-client"
	ComponentNotifier        = "notifier"
	ComponentAPI             = "api"
)

var AllComponents = map[string]struct{}{
	ComponentHeroSubscriber:  {},
	ComponentHouseSubscriber: {},
	ComponentCursorStore:     {},
	ComponentLedger:          {},
	ComponentChainClient:     {},
	ComponentNotifier:        {},
	ComponentAPI:             {},
}
