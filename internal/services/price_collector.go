package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
)

// Monedas consultadas por defecto cuando COLLECTOR_COINS no está configurada
const defaultCoinIDs = "btc-bitcoin,eth-ethereum,sol-solana,ada-cardano,dot-polkadot"

// coinPaprikaTicker es la respuesta cruda de /v1/tickers de CoinPaprika
type coinPaprikaTicker struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quotes map[string]struct {
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume_24h"`
		MarketCap float64 `json:"market_cap"`
	} `json:"quotes"`
}

// PriceCollector consulta CoinPaprika periódicamente y guarda cada precio
// en la base. El motor de trading siempre lee el último registro guardado;
// el colector es el único escritor del feed.
type PriceCollector struct {
	interval  time.Duration
	prices    *repository.PriceRepository
	hub       *PriceHub
	client    *http.Client
	coinIDs   string
	isRunning bool
	stopChan  chan struct{}
	mutex     sync.Mutex
}

func NewPriceCollector(interval time.Duration, prices *repository.PriceRepository, hub *PriceHub) *PriceCollector {
	coinIDs := os.Getenv("COLLECTOR_COINS")
	if coinIDs == "" {
		coinIDs = defaultCoinIDs
	}

	return &PriceCollector{
		interval: interval,
		prices:   prices,
		hub:      hub,
		// Timeout acotado: un feed caído no debe colgar nada
		client:   &http.Client{Timeout: 10 * time.Second},
		coinIDs:  coinIDs,
		stopChan: make(chan struct{}),
	}
}

// Start lanza el bucle de recolección en segundo plano
func (c *PriceCollector) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return
	}
	c.isRunning = true

	go func() {
		log.Printf("Colector de precios iniciado (intervalo: %v)", c.interval)

		// Primera recolección inmediata para no arrancar con el feed vacío
		if err := c.CollectOnce(); err != nil {
			log.Printf("Error en la recolección inicial: %v", err)
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.CollectOnce(); err != nil {
					log.Printf("Error al recolectar precios: %v", err)
				}
			case <-c.stopChan:
				log.Println("Colector de precios detenido")
				return
			}
		}
	}()
}

// Stop detiene el bucle de recolección
func (c *PriceCollector) Stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isRunning {
		return
	}
	c.isRunning = false
	close(c.stopChan)
}

// CollectOnce hace una pasada completa: consulta la API, transforma y guarda
func (c *PriceCollector) CollectOnce() error {
	tickers, err := c.fetchTickers()
	if err != nil {
		return err
	}

	records := TransformTickers(tickers)
	for i := range records {
		if err := c.prices.SavePrice(&records[i]); err != nil {
			log.Printf("Error al guardar precio de %s: %v", records[i].Symbol, err)
			continue
		}
	}

	if c.hub != nil && len(records) > 0 {
		if payload, err := json.Marshal(records); err == nil {
			c.hub.Broadcast(payload)
		}
	}

	log.Printf("Precios recolectados: %d registros", len(records))
	return nil
}

func (c *PriceCollector) fetchTickers() ([]coinPaprikaTicker, error) {
	url := fmt.Sprintf("https://api.coinpaprika.com/v1/tickers?ids=%s", c.coinIDs)

	resp, err := c.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coinpaprika devolvió estado %d", resp.StatusCode)
	}

	var tickers []coinPaprikaTicker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// TransformTickers convierte la respuesta cruda en registros de precio.
// Los tickers sin cotización USD se descartan.
func TransformTickers(tickers []coinPaprikaTicker) []models.PriceRecord {
	now := time.Now().UTC()

	var records []models.PriceRecord
	for _, t := range tickers {
		usd, ok := t.Quotes["USD"]
		if !ok {
			continue
		}
		symbol := models.CanonicalSymbol(t.Symbol)
		if symbol == "" {
			continue
		}

		records = append(records, models.PriceRecord{
			ID:        models.GenerateUUID(),
			CoinID:    strings.TrimSpace(t.ID),
			Symbol:    symbol,
			Name:      t.Name,
			PriceUSD:  usd.Price,
			Volume24h: usd.Volume24h,
			MarketCap: usd.MarketCap,
			Timestamp: now,
		})
	}
	return records
}
