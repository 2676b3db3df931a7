package repository

import "sync"

// PortfolioLocks mantiene un mutex por portfolio. El ejecutor de trades
// lo retiene durante toda la secuencia validación→registro, y las rutas
// de lectura que revalorizan posiciones lo toman también: así una sola
// operación muta el balance y las posiciones de un portfolio a la vez.
//
// Las entradas nunca se eliminan: borrar el mutex de un portfolio con
// esperas encoladas dejaría a cada espera desbloqueando una instancia
// distinta de la que bloqueó. Un portfolio borrado deja un mutex ocioso
// en el mapa, nada más.
type PortfolioLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPortfolioLocks() *PortfolioLocks {
	return &PortfolioLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *PortfolioLocks) get(portfolioID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[portfolioID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[portfolioID] = l
	}
	return l
}

// Lock bloquea el portfolio indicado hasta que se llame a Unlock
func (p *PortfolioLocks) Lock(portfolioID string) {
	p.get(portfolioID).Lock()
}

func (p *PortfolioLocks) Unlock(portfolioID string) {
	p.get(portfolioID).Unlock()
}
