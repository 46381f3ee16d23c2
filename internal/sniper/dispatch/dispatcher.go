// Package dispatch turns extracted signals into buy orders.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"tweetsniper/internal/sniper/chain"
	"tweetsniper/internal/sniper/token"
	"tweetsniper/pkg/swap"

	"go.uber.org/zap"
)

var errNoSwapper = errors.New("no swap executor for chain")

// Dispatcher executes trades for one signal at a time. Candidates within a
// call are processed sequentially in extraction order.
type Dispatcher struct {
	resolver Resolver
	swappers map[chain.Chain]Swapper
	logger   *zap.Logger
}

func New(resolver Resolver, swappers map[chain.Chain]Swapper, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		swappers: swappers,
		logger:   logger.Named("dispatcher"),
	}
}

// Dispatch trades on req.Signal. A direct contract address short-circuits
// ticker processing. Failures are recorded in the report and never stop
// the remaining candidates.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Report {
	amountRaw := req.Config.Amount.String()
	if req.Amount != nil {
		amountRaw = *req.Amount
	}

	o := order{
		amount:      NormalizeAmount(amountRaw),
		slippageBps: NormalizeSlippage(req.Config.Slippage.String()),
		gasFee:      req.Config.GasFee.String(),
		allowed:     req.Config.Chain,
		wallet:      req.Wallet,
	}

	var report Report
	sig := req.Signal

	if sig.HasContract() {
		if req.Config.Type == TypeKeywords {
			d.logger.Debug("contract address ignored by keywords sniper", zap.String("ca", sig.ContractAddress))
			return report
		}
		c, ok := chain.Normalize(sig.ChainHint)
		if !ok {
			c = chain.FromAddress(sig.ContractAddress)
		}
		att := d.trade(ctx, o, c, sig.ContractAddress, &report)
		report.Attempts = append(report.Attempts, att)
		return report
	}

	if len(sig.Tickers) == 0 || req.Config.Type == TypeCA {
		return report
	}

	for _, sym := range sig.Tickers {
		report.Attempts = append(report.Attempts, d.tradeSymbol(ctx, o, sym, &report))
	}
	return report
}

func (d *Dispatcher) tradeSymbol(ctx context.Context, o order, sym string, report *Report) Attempt {
	res, ok := d.resolver.Resolve(ctx, sym)
	if !ok {
		d.logger.Info("symbol not resolved", zap.String("symbol", sym))
		return Attempt{Symbol: sym, Outcome: OutcomeNotFound}
	}

	c, ok := chain.Normalize(res.Token.Chain)
	if !ok {
		d.logger.Info("unsupported chain",
			zap.String("symbol", sym), zap.String("chain", res.Token.Chain), zap.Stringer("source", res.Source))
		return Attempt{
			Symbol:          sym,
			ContractAddress: res.Token.ContractAddress,
			Source:          res.Source.String(),
			Outcome:         OutcomeUnknownChain,
		}
	}

	att := d.trade(ctx, o, c, res.Token.ContractAddress, report)
	att.Symbol = sym
	att.Source = res.Source.String()

	if att.Outcome == OutcomeTraded && res.Source == token.SourceSearch {
		rec := token.Record{
			Name:            res.Token.Name,
			Symbol:          token.NormalizeSymbol(sym),
			ContractAddress: res.Token.ContractAddress,
			Chain:           res.Token.Chain,
		}
		if err := d.resolver.Remember(rec); err != nil {
			d.logger.Error("failed to remember token", zap.String("symbol", sym), zap.Error(err))
		}
	}
	return att
}

type order struct {
	amount      string
	slippageBps int
	gasFee      string
	allowed     chain.Option
	wallet      Wallet
}

// trade attempts one buy and appends it to report on success.
func (d *Dispatcher) trade(ctx context.Context, o order, c chain.Chain, ca string, report *Report) Attempt {
	att := Attempt{ContractAddress: ca, Chain: c}

	if !chain.IsAllowed(o.allowed, c) {
		d.logger.Info("chain not allowed",
			zap.String("chain", string(c)), zap.String("allowed", string(o.allowed)), zap.String("ca", ca))
		att.Outcome = OutcomeChainNotAllowed
		return att
	}

	res, err := d.swap(ctx, c, swap.Request{
		TokenAddress: ca,
		Amount:       o.amount,
		SlippageBps:  o.slippageBps,
		PrivateKey:   o.wallet.keyFor(c),
		GasFee:       o.gasFee,
	})
	if err == nil && res.Hash == "" {
		err = swap.ErrNoHash
	}
	if err != nil {
		d.logger.Warn("swap failed", zap.String("chain", string(c)), zap.String("ca", ca), zap.Error(err))
		att.Outcome = OutcomeFailed
		att.Err = err
		return att
	}

	d.logger.Info("swap executed",
		zap.String("chain", string(c)), zap.String("ca", ca), zap.String("hash", res.Hash),
		zap.String("amount", o.amount), zap.Int("slippage_bps", o.slippageBps))
	report.Trades = append(report.Trades, TradeResult{Hash: res.Hash, Chain: c})
	att.Outcome = OutcomeTraded
	return att
}

// swap calls the chain's executor, converting a panic into an error.
func (d *Dispatcher) swap(ctx context.Context, c chain.Chain, req swap.Request) (res swap.Result, err error) {
	s, ok := d.swappers[c]
	if !ok || s == nil {
		return swap.Result{}, fmt.Errorf("%w: %s", errNoSwapper, c)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("swap panicked: %v", r)
		}
	}()
	return s.Swap(ctx, req)
}
