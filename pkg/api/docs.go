// Package api provides the REST API for querying indexed marketplace orders
// @title Market Indexer API
// @version 1.0
// @description REST API for querying NFT marketplace orders indexed from chain events
// @contact.name API Support
// @contact.url https://github.com/bombverse/market-indexer
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
