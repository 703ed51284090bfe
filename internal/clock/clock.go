// Caminho: internal/clock/clock.go
// Resumo: Fonte de tempo injetável. Produção usa Real(); testes usam Fake() com tempo controlado.

package clock

import (
	"sync"
	"time"
)

// Clock abstrai a leitura do instante atual.
type Clock interface {
	Now() time.Time
}

// Real retorna um Clock baseado no pacote time.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// FakeClock é um Clock determinístico; o tempo só muda via Set ou Advance.
// Seguro para uso concorrente.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake cria um FakeClock parado em initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now retorna o instante atual do relógio falso.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set posiciona o relógio em t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance avança o relógio em d (aceita d negativo).
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}
