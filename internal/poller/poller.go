// Package poller implements C6: the single-pass, single-market
// pipeline (fetch -> indicators -> regime -> score -> decide -> size
// -> emit) that the orchestrator runs once per market per cycle.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"scanner-go/internal/config"
	"scanner-go/internal/confidence"
	"scanner-go/internal/correlation"
	"scanner-go/internal/decision"
	"scanner-go/internal/indicator"
	"scanner-go/internal/kelly"
	"scanner-go/internal/model"
	"scanner-go/internal/probability"
	"scanner-go/internal/regime"
)

const (
	rsiPeriod       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	atrPeriod       = 14
	bollingerPeriod = 20
	bollingerStdDev = 2.0
	vwapSlopeLookback = 5
	vwapCrossWindow   = 20

	stochRSIPeriod         = 14
	stochRSISmoothK        = 3
	stochRSISmoothD        = 3
	trendFastEMA           = 20
	trendSlowEMA           = 50
	liquiditySweepLookback = 10

	// confluenceCandles5m/15m are the per-timeframe candle counts
	// fetched alongside the primary 1m history; the confluence vote
	// only needs enough bars for VWAP/RSI to settle, not the full
	// 200-bar primary window.
	confluenceCandles5m  = 60
	confluenceCandles15m = 40

	// confluenceBiasBand is the neutral band around 0.5 a timeframe's
	// rawUp must clear to count as a directional vote at all.
	confluenceBiasBand = 0.05
)

// ExchangeClient is the C1 surface the poller consumes for one market.
type ExchangeClient interface {
	FetchPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) ([]model.Candle, error)
	FetchOrderbook(ctx context.Context, tokenID string) (bids, asks []indicator.BookLevel, err error)
}

// WeightSource supplies the current published weight table.
type WeightSource interface {
	Current() *model.WeightTable
}

// Poller owns one market's regime history and runs its single-pass
// pipeline once per invocation.
type Poller struct {
	market model.Market
	client ExchangeClient
	cfg    *config.Config

	weights     WeightSource
	correlation *correlation.Engine

	regimeTracker *regime.Tracker

	mu       sync.RWMutex
	lastTick model.Tick
}

// New constructs a poller for one market.
func New(market model.Market, client ExchangeClient, cfg *config.Config, weights WeightSource, corrEngine *correlation.Engine) *Poller {
	return &Poller{
		market:        market,
		client:        client,
		cfg:           cfg,
		weights:       weights,
		correlation:   corrEngine,
		regimeTracker: regime.NewTracker(),
	}
}

// Market returns the market this poller tracks.
func (p *Poller) Market() model.Market {
	return p.market
}

// LastTick returns the most recently emitted tick; the orchestrator's
// LatestTick serves it to store.TickSource by market id.
func (p *Poller) LastTick() (model.Tick, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastTick.MarketID == "" {
		return model.Tick{}, false
	}
	return p.lastTick, true
}

// Poll runs one full pipeline invocation for this market and returns
// the resulting tick. Failures are reported in the tick itself
// (ok=false with a reason code); Poll has no error return.
func (p *Poller) Poll(ctx context.Context, now time.Time) model.Tick {
	tick := model.Tick{
		MarketID:  p.market.ID,
		Question:  p.market.Question,
		Category:  p.market.Category,
		Timestamp: now,
		Liquidity: p.market.Liquidity,
	}

	if !p.market.HasTokenIDs() {
		tick.Reason = "missing_token_ids"
		p.publish(tick)
		return tick
	}

	candles, candles5m, candles15m, bids, asks, err := p.fetchConcurrently(ctx)
	if err != nil {
		tick.Reason = "fetch_error"
		p.publish(tick)
		return tick
	}
	if len(candles) == 0 {
		tick.Reason = "no_candles"
		p.publish(tick)
		return tick
	}

	if p.market.Closed {
		tick.Reason = "market_closed"
	}

	ind := computeIndicators(candles, bids, asks)
	lastClose := candles[len(candles)-1].Close
	ind.Price = lastClose
	tick.Indicators = ind
	tick.Prices = model.MarketPrices{Yes: p.market.YesPrice, No: p.market.NoPrice}

	regimeClass := regime.Classify(lastClose, ind.VWAP, ind.VWAPSlope, ind.VWAPCrossCount, ind.RecentVolume, ind.AverageVolume)
	stability, recentTransitions := p.regimeTracker.Update(now, regimeClass)
	tick.RegimeClass = regimeClass
	tick.RegimeStability = stability
	tick.RegimeRecentTransitions = recentTransitions

	volClass, _ := regime.Volatility(p.market.Category, ind.ATRPct)
	tick.Volatility = volClass

	remainingMinutes := p.market.RemainingMinutes(now)
	tick.SettlementMinutesLeft = remainingMinutes
	shortDated := remainingMinutes <= 60

	horizon := probability.Horizon(p.market.Category, shortDated, p.cfg.HorizonShortCryptoMin, p.cfg.HorizonLongCryptoMin, p.cfg.HorizonNonCryptoMin)

	table := p.weights.Current()
	rawUp, degenerate, votes := probability.Score(lastClose, ind, p.market.Category, table)
	ind.Degenerate = degenerate
	tick.Indicators = ind

	scored := probability.ApplyTimeDecay(rawUp, remainingMinutes, horizon)
	tick.Probabilities = model.Probabilities{RawUp: scored.RawUp, AdjustedUp: scored.AdjustedUp, AdjustedDown: scored.AdjustedDown}

	provisionalSide := model.SideUp
	if scored.AdjustedDown > scored.AdjustedUp {
		provisionalSide = model.SideDown
	}

	correlationAdj := 1.0
	if p.market.IsCrypto() && p.correlation != nil {
		state := p.correlation.Snapshot()
		correlationAdj = correlation.Adjustment(state, p.market.Category, p.market.Question, provisionalSide, p.market.Tags)
	}

	biases := []model.Side{
		biasFromRawUp(rawUp),
		p.timeframeBias(candles5m, bids, asks, table),
		p.timeframeBias(candles15m, bids, asks, table),
	}
	confluenceAligned, confluenceConflict := multiTimeframeConfluence(biases, provisionalSide)

	edges := decision.Edges(scored.AdjustedUp, scored.AdjustedDown, p.market.YesPrice, p.market.NoPrice, correlationAdj)
	tick.Edges = edges

	flow := analyzeOrderFlow(bids, asks, edges)
	tick.OrderFlow = flow

	rec := decision.Decide(decision.Input{
		Edges:              edges,
		Volatility:         volClass,
		Regime:             regimeClass,
		ConfluenceAligned:  confluenceAligned,
		ConfluenceConflict: confluenceConflict,
		RemainingMinutes:   remainingMinutes,
		HorizonMinutes:     horizon,
	})
	tick.Rec = rec

	bestEdge := edges.EdgeUp
	if edges.EdgeDown > edges.EdgeUp {
		bestEdge = edges.EdgeDown
	}

	majorVotes, minorVotes := votes.Up, votes.Down
	if minorVotes > majorVotes {
		majorVotes, minorVotes = minorVotes, majorVotes
	}

	conf := confidence.Score(confidence.Input{
		Edge:               bestEdge,
		Degenerate:         degenerate,
		MajorVotes:         majorVotes,
		MinorVotes:         minorVotes,
		ConfluenceAligned:  confluenceAligned,
		ConfluenceConflict: confluenceConflict,
		CorrelationAdj:     correlationAdj,
		Volatility:         volClass,
		FlowSupports:       flow.Aligned,
		FlowAlignedScore:   flow.AlignedScore,
		FlowQuality:        flow.Quality,
		FlowConflicts:      flow.Supports != "" && flow.Supports != rec.Side,
		Decay:              scored.Decay,
		RegimeAligned:      regimeAlignedWithSide(regimeClass, rec.Side),
		Regime:             regimeClass,
	})
	tick.Confidence = conf

	var kellyResult model.Kelly
	if rec.Action == model.ActionEnter {
		if rec.Side == model.SideUp {
			kellyResult = kelly.Size(scored.AdjustedUp, p.market.YesPrice, conf.Tier)
		} else {
			kellyResult = kelly.Size(scored.AdjustedDown, p.market.NoPrice, conf.Tier)
		}
	}
	tick.Kelly = kellyResult

	tick.OK = true
	tick.Signal = tick.SignalString()

	p.publish(tick)
	return tick
}

func (p *Poller) publish(tick model.Tick) {
	p.mu.Lock()
	p.lastTick = tick
	p.mu.Unlock()
}

// fetchConcurrently fetches the primary 1m history plus the 5m/15m
// histories the multi-timeframe confluence vote needs, alongside the
// orderbook, all in parallel. Only the primary 1m fetch failing is
// fatal to the poll; a missing higher timeframe just drops out of the
// confluence vote and a missing orderbook is logged and ignored.
func (p *Poller) fetchConcurrently(ctx context.Context) (candles1m, candles5m, candles15m []model.Candle, bids, asks []indicator.BookLevel, err error) {
	var wg sync.WaitGroup
	var err1m, err5m, err15m, bookErr error

	wg.Add(4)
	go func() {
		defer wg.Done()
		candles1m, err1m = p.client.FetchPriceHistory(ctx, p.market.YesTokenID, "1m", 200)
	}()
	go func() {
		defer wg.Done()
		candles5m, err5m = p.client.FetchPriceHistory(ctx, p.market.YesTokenID, "5m", confluenceCandles5m)
	}()
	go func() {
		defer wg.Done()
		candles15m, err15m = p.client.FetchPriceHistory(ctx, p.market.YesTokenID, "15m", confluenceCandles15m)
	}()
	go func() {
		defer wg.Done()
		bids, asks, bookErr = p.client.FetchOrderbook(ctx, p.market.YesTokenID)
	}()
	wg.Wait()

	if err1m != nil {
		return nil, nil, nil, nil, nil, err1m
	}
	if err5m != nil {
		log.Printf("⚠️  [Poller] 5m history fetch failed for %s, confluence treats it as neutral: %v", p.market.ID, err5m)
	}
	if err15m != nil {
		log.Printf("⚠️  [Poller] 15m history fetch failed for %s, confluence treats it as neutral: %v", p.market.ID, err15m)
	}
	if bookErr != nil {
		log.Printf("⚠️  [Poller] orderbook fetch failed for %s, continuing without it: %v", p.market.ID, bookErr)
	}
	return candles1m, candles5m, candles15m, bids, asks, nil
}

// timeframeBias scores one timeframe's candles through the same
// weighted-vote table the primary pipeline uses and buckets the
// result into an up/down/neutral bias for the confluence vote.
func (p *Poller) timeframeBias(candles []model.Candle, bids, asks []indicator.BookLevel, table *model.WeightTable) model.Side {
	if len(candles) == 0 {
		return ""
	}
	ind := computeIndicators(candles, bids, asks)
	ind.Price = candles[len(candles)-1].Close

	rawUp, _, _ := probability.Score(ind.Price, ind, p.market.Category, table)
	return biasFromRawUp(rawUp)
}

func biasFromRawUp(rawUp float64) model.Side {
	switch {
	case rawUp > 0.5+confluenceBiasBand:
		return model.SideUp
	case rawUp < 0.5-confluenceBiasBand:
		return model.SideDown
	default:
		return ""
	}
}

// multiTimeframeConfluence counts how many of the 1m/5m/15m indicator
// stacks agree with side versus how many disagree, per the glossary's
// definition of confluence. A timeframe whose score falls in the
// neutral band votes neither way.
func multiTimeframeConfluence(biases []model.Side, side model.Side) (aligned, conflicting int) {
	for _, bias := range biases {
		switch {
		case bias == "":
			continue
		case bias == side:
			aligned++
		default:
			conflicting++
		}
	}
	return aligned, conflicting
}

func computeIndicators(candles []model.Candle, bids, asks []indicator.BookLevel) model.IndicatorSnapshot {
	closes := model.Closes(candles)
	highs := model.Highs(candles)
	lows := model.Lows(candles)
	volumes := model.Volumes(candles)

	vwapSeries := indicator.CalculateVWAP(highs, lows, closes, volumes)
	vwap := lastOf(vwapSeries)
	vwapSlope := indicator.VWAPSlope(vwapSeries, vwapSlopeLookback)
	crossCount := indicator.VWAPCrossCount(closes, vwapSeries, vwapCrossWindow)
	failedReclaim := indicator.FailedVWAPReclaim(closes, vwapSeries)

	rsi := indicator.GetLastRSI(closes, rsiPeriod)
	rsiSlope := indicator.RSISlope(closes, rsiPeriod)

	macd, signal, hist, histDelta := lastMACDWithDelta(closes)

	heikenColor, heikenStreak := indicator.HeikenAshiColorStreak(candles)

	atr := indicator.CalculateATR(candles, atrPeriod)
	atrPct := indicator.ATRPercent(atr, lastOf(closes))

	upper, middle, lower := indicator.GetLastBollingerBands(closes, bollingerPeriod, bollingerStdDev)
	width, squeeze := indicator.BollingerWidth(upper, middle, lower)

	recentVolume := avgOfLast(volumes, 5)
	averageVolume := avgOfLast(volumes, 20)

	obImbalance := indicator.OrderbookImbalance(bids, asks)

	rsiSeries := indicator.CalculateRSI(closes, rsiPeriod)
	stochRSI, _ := indicator.GetLastStochRSI(rsiSeries, stochRSIPeriod, stochRSISmoothK, stochRSISmoothD)
	trendState, _, _ := indicator.CheckTrendState(closes, trendFastEMA, trendSlowEMA)
	sweep := indicator.DetectLiquiditySweep(candles, liquiditySweepLookback)

	return model.IndicatorSnapshot{
		VWAP:               vwap,
		VWAPSlope:          vwapSlope,
		RSI:                rsi,
		RSISlope:           rsiSlope,
		MACD:               macd,
		Signal:             signal,
		Hist:               hist,
		HistDelta:          histDelta,
		HeikenColor:        heikenColor,
		HeikenStreak:       heikenStreak,
		ATR:                atr,
		ATRPct:             atrPct,
		BollingerWidth:     width,
		Squeeze:            squeeze,
		VWAPCrossCount:     crossCount,
		RecentVolume:       recentVolume,
		AverageVolume:      averageVolume,
		FailedVWAPReclaim:  failedReclaim,
		OrderbookImbalance: obImbalance,
		CandlestickPattern: indicator.IdentifyPattern(candles),
		StochRSI:           stochRSI,
		TrendState:         string(trendState),
		LiquiditySweep:     sweep,
	}
}

// lastMACDWithDelta returns the last MACD triple plus histDelta (hist
// minus the prior bar's hist), which GetLastMACD alone doesn't expose.
func lastMACDWithDelta(closes []float64) (macd, signal, hist, histDelta float64) {
	macdLine, signalLine, histLine := indicator.CalculateMACD(closes, macdFast, macdSlow, macdSignal)
	n := len(histLine)
	if n == 0 {
		return 0, 0, 0, 0
	}
	hist = histLine[n-1]
	if n >= 2 {
		histDelta = hist - histLine[n-2]
	}
	macd = macdLine[len(macdLine)-1]
	signal = signalLine[len(signalLine)-1]
	return macd, signal, hist, histDelta
}

func lastOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func avgOfLast(series []float64, n int) float64 {
	if len(series) == 0 {
		return 0
	}
	if n > len(series) {
		n = len(series)
	}
	sum := 0.0
	for _, v := range series[len(series)-n:] {
		sum += v
	}
	return sum / float64(n)
}

func regimeAlignedWithSide(r model.Regime, side model.Side) bool {
	return (r == model.RegimeTrendUp && side == model.SideUp) || (r == model.RegimeTrendDown && side == model.SideDown)
}

// analyzeOrderFlow summarizes top-of-book pressure and wall counts
// from the fetched book, used both in the tick's orderFlow subtree
// and as a confidence sub-score input.
func analyzeOrderFlow(bids, asks []indicator.BookLevel, edges model.Edges) model.OrderFlow {
	bidLiq := sumLiquidity(bids)
	askLiq := sumLiquidity(asks)
	total := bidLiq + askLiq

	var pressure float64
	if total > 0 {
		pressure = (bidLiq - askLiq) / total * 100
	}

	avgSize := avgSizeOf(append(append([]indicator.BookLevel{}, bids...), asks...))
	wallCountYes := countWalls(bids, avgSize)
	wallCountNo := countWalls(asks, avgSize)

	quality := model.FlowThin
	switch {
	case total >= 10000:
		quality = model.FlowDeep
	case total >= 2000:
		quality = model.FlowModerate
	}

	spreadQuality := "normal"
	if len(bids) > 0 && len(asks) > 0 {
		spread := asks[0].Price - bids[0].Price
		if spread <= 0.01 {
			spreadQuality = "tight"
		} else if spread >= 0.05 {
			spreadQuality = "wide"
		}
	}

	var supports model.Side
	if pressure > 10 {
		supports = model.SideUp
	} else if pressure < -10 {
		supports = model.SideDown
	}

	bestSide := model.SideUp
	if edges.EdgeDown > edges.EdgeUp {
		bestSide = model.SideDown
	}
	aligned := supports == bestSide && supports != ""
	alignedScore := pressure
	if bestSide == model.SideDown {
		alignedScore = -pressure
	}

	return model.OrderFlow{
		PressureScore: pressure,
		WallCountYes:  wallCountYes,
		WallCountNo:   wallCountNo,
		Quality:       quality,
		SpreadQuality: spreadQuality,
		Supports:      supports,
		Aligned:       aligned,
		AlignedScore:  alignedScore,
	}
}

func sumLiquidity(levels []indicator.BookLevel) float64 {
	sum := 0.0
	for _, l := range levels {
		sum += l.Price * l.Size
	}
	return sum
}

func avgSizeOf(levels []indicator.BookLevel) float64 {
	if len(levels) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range levels {
		sum += l.Size
	}
	return sum / float64(len(levels))
}

func countWalls(levels []indicator.BookLevel, avgSize float64) int {
	if avgSize <= 0 {
		return 0
	}
	count := 0
	for _, l := range levels {
		if l.Size >= avgSize*3 {
			count++
		}
	}
	return count
}
