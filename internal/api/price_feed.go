package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/rebalancer/internal/money"
)

// PriceSetter is the narrow market contract the price feed drives. Satisfied
// by *market.Market.
type PriceSetter interface {
	SetPrice(symbol string, price money.Price) error
}

type priceTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// PriceFeedSocket is a WebSocket ingress adapter: each inbound JSON message
// {"symbol":"AAPL","price":101.50} is applied to the market via SetPrice,
// which in turn fans out to every portfolio holding that symbol through the
// registry's OnPriceChange dispatch. One goroutine per connection; no
// buffering or backpressure beyond what the OS socket already provides.
type PriceFeedSocket struct {
	market PriceSetter
	log    zerolog.Logger
}

// NewPriceFeedSocket constructs the adapter.
func NewPriceFeedSocket(market PriceSetter, log zerolog.Logger) *PriceFeedSocket {
	return &PriceFeedSocket{market: market, log: log.With().Str("component", "price_feed_socket").Logger()}
}

// Handler upgrades the connection and reads price ticks until the client
// disconnects or sends a malformed message.
func (p *PriceFeedSocket) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		p.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	ctx := r.Context()
	for {
		var tick priceTick
		if err := wsjson.Read(ctx, conn, &tick); err != nil {
			p.log.Debug().Err(err).Msg("price feed connection closed")
			return
		}
		if err := p.market.SetPrice(tick.Symbol, money.PriceFromFloat(tick.Price)); err != nil {
			p.log.Warn().Str("symbol", tick.Symbol).Err(err).Msg("rejected price tick")
			continue
		}
	}
}
