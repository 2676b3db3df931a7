package services

import "testing"

func TestTransformTickers(t *testing.T) {
	quotes := func(price, volume, marketCap float64) map[string]struct {
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume_24h"`
		MarketCap float64 `json:"market_cap"`
	} {
		return map[string]struct {
			Price     float64 `json:"price"`
			Volume24h float64 `json:"volume_24h"`
			MarketCap float64 `json:"market_cap"`
		}{
			"USD": {Price: price, Volume24h: volume, MarketCap: marketCap},
		}
	}

	tickers := []coinPaprikaTicker{
		{ID: "btc-bitcoin", Name: "Bitcoin", Symbol: "btc", Quotes: quotes(50000, 1000, 900000)},
		{ID: "eth-ethereum", Name: "Ethereum", Symbol: " ETH ", Quotes: quotes(3000, 500, 400000)},
		{ID: "sin-usd", Name: "SinUSD", Symbol: "XXX", Quotes: nil},
		{ID: "sin-simbolo", Name: "SinSimbolo", Symbol: "   ", Quotes: quotes(1, 1, 1)},
	}

	records := TransformTickers(tickers)

	if len(records) != 2 {
		t.Fatalf("registros = %d, want 2 (sin USD y sin símbolo se descartan)", len(records))
	}

	if records[0].Symbol != "BTC" {
		t.Errorf("Symbol = %q, want BTC canonicalizado", records[0].Symbol)
	}
	if records[0].PriceUSD != 50000 {
		t.Errorf("PriceUSD = %f, want 50000", records[0].PriceUSD)
	}
	if records[1].Symbol != "ETH" {
		t.Errorf("Symbol = %q, want ETH canonicalizado", records[1].Symbol)
	}
	for _, rec := range records {
		if rec.ID == "" {
			t.Error("cada registro debe llevar un ID propio")
		}
		if rec.Timestamp.IsZero() {
			t.Error("cada registro debe llevar timestamp")
		}
	}
}

func TestValidateDiscordWebhookURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"Oficial", "https://discord.com/api/webhooks/123/abc", true},
		{"App", "https://discordapp.com/api/webhooks/123/abc", true},
		{"Canary", "https://canary.discord.com/api/webhooks/123/abc", true},
		{"PTB", "https://ptb.discord.com/api/webhooks/123/abc", true},
		{"Vacia", "", false},
		{"OtroDominio", "https://example.com/api/webhooks/123/abc", false},
		{"SinHTTPS", "http://discord.com/api/webhooks/123/abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateDiscordWebhookURL(tt.url); got != tt.want {
				t.Errorf("ValidateDiscordWebhookURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
