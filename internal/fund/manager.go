package fund

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

var (
	ErrInsufficientCash     = errors.New("insufficient cash for buy")
	ErrInsufficientPosition = errors.New("insufficient position to sell")
)

// Ledger tracks virtual cash and whole-share positions for local paper
// trading. Every fill is persisted when a state file is configured.
type Ledger struct {
	mu       sync.Mutex
	state    *model.LedgerState
	filePath string
}

// NewLedger loads the ledger from filePath, or starts a fresh one funded with
// startingCash. An empty filePath keeps the ledger in memory only.
func NewLedger(filePath string, startingCash float64) (*Ledger, error) {
	state := &model.LedgerState{}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
	}

	if state.StartingCash == 0 {
		state.StartingCash = startingCash
		state.Cash = startingCash
	}
	if state.Positions == nil {
		state.Positions = make(map[string]model.LotState)
	}

	l := &Ledger{state: state, filePath: filePath}
	if err := l.save(); err != nil {
		return nil, err
	}
	return l, nil
}

// State returns a copy of the current ledger state.
func (l *Ledger) State() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *l.state
	cp.Positions = make(map[string]model.LotState, len(l.state.Positions))
	for k, v := range l.state.Positions {
		cp.Positions[k] = v
	}
	return cp
}

// Cash returns free cash.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Cash
}

// Position returns the held quantity of symbol.
func (l *Ledger) Position(symbol string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Positions[symbol].Qty
}

// Fill applies a market fill of qty shares at price.
func (l *Ledger) Fill(symbol string, side model.Side, qty int64, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lot := l.state.Positions[symbol]
	notional := float64(qty) * price

	switch side {
	case model.SideBuy:
		if notional > l.state.Cash {
			return ErrInsufficientCash
		}
		newQty := lot.Qty + qty
		lot.AvgCost = (lot.AvgCost*float64(lot.Qty) + notional) / float64(newQty)
		lot.Qty = newQty
		l.state.Cash -= notional
		l.state.Positions[symbol] = lot

	case model.SideSell:
		if lot.Qty < qty {
			return ErrInsufficientPosition
		}
		l.state.RealizedPnL += (price - lot.AvgCost) * float64(qty)
		l.state.Cash += notional
		lot.Qty -= qty
		if lot.Qty == 0 {
			delete(l.state.Positions, symbol)
		} else {
			l.state.Positions[symbol] = lot
		}

	default:
		return fmt.Errorf("unknown order side %q", side)
	}

	l.state.Orders++
	return l.save()
}

func (l *Ledger) save() error {
	if l.filePath == "" {
		return nil
	}
	return SaveState(l.filePath, l.state)
}
