package consensusgraph

// riskEntry is one maintained confirmation-risk estimate for a pivot-chain
// block (spec §4.5): risk decays as later pivot blocks accumulate weight
// on top, and is dropped once it falls to or below MinMaintainedRisk.
type riskEntry struct {
	idx    int
	height int
	risk   float64
}

// aggregateTotalWeightInPast folds a newly-finalized block's own weight into
// the running total_weight_in_past_2d accumulator (spec §4.5).
func (in *Inner) aggregateTotalWeightInPast(weight int64) {
	in.twCur += weight
}

// UpdateTotalWeightInPast rolls the current accumulator into the previous
// snapshot, leaving twDelta as the weight added since the last rollover;
// consensus.Worker calls it on a fixed timer (totalWeightRolloverInterval).
func (in *Inner) UpdateTotalWeightInPast() {
	in.twDelta = in.twCur - in.twOld
	in.twOld = in.twCur
}

// currentDifficulty stands in for the running difficulty target §4.5's
// formula calls d: this module has no separate difficulty-retargeting
// subsystem, so the pivot tip's own difficulty — which in steady state is
// exactly what a retargeting algorithm would converge to — is used instead.
func (in *Inner) currentDifficulty() int64 {
	tip := in.pivotChain[len(in.pivotChain)-1]
	return int64(in.arena[tip].difficulty)
}

// updateConfirmationRisk implements spec §4.5: after m is appended, risk is
// recomputed from scratch for every epoch from
// len(pivotChain)-DeferredStateEpochCount backward, capped at
// MaxNumMaintainedRisk entries and stopping as soon as an epoch's risk drops
// to or below MinMaintainedRisk; epochs further back are then not examined.
func (in *Inner) updateConfirmationRisk(tipHeight int) {
	if tipHeight+1 <= DeferredStateEpochCount {
		in.risks = nil
		return
	}

	w0 := in.subtreeWeight(in.genesisIndex)
	w4 := in.twDelta

	var risks []riskEntry
	epochNum := tipHeight + 1 - DeferredStateEpochCount
	for epochNum > 0 && len(risks) < MaxNumMaintainedRisk {
		risk := in.confirmationRisk(w0, w4, epochNum)
		if risk <= MinMaintainedRisk {
			break
		}
		idx := in.pivotChain[epochNum]
		risks = append(risks, riskEntry{idx: idx, height: epochNum, risk: risk})
		epochNum--
	}
	in.risks = risks
}

// confirmationRisk implements spec §4.5's exact five-input heuristic:
// w_0 = total weight, w_1 = the epoch's own pivot weight, w_2 = the heaviest
// non-partial-invalid sibling's weight, w_3 = the pivot block's past weight,
// w_4 = the past-2d weight delta, d = current difficulty. m = (w_0-w_3)/d
// bounds how much weight has settled since; n = max(0,w_1-w_2-w_4)/d + 1
// bounds how much weight an equivocating sibling could plausibly catch up
// with. Risk falls from 0.9 to 1e-4 to 1e-6 as n clears two widening
// thresholds scaled by m.
func (in *Inner) confirmationRisk(w0, w4 int64, epochNum int) float64 {
	idx := in.pivotChain[epochNum]
	w1 := in.arena[idx].blockWeight()

	parent := in.arena[idx].parent
	var w2 int64
	for _, c := range in.arena[parent].children {
		if c == idx || in.arena[c].data.partialInvalid {
			continue
		}
		if cw := in.arena[c].blockWeight(); cw > w2 {
			w2 = cw
		}
	}

	w3 := in.arena[idx].pastWeight
	d := in.currentDifficulty()
	if d <= 0 {
		d = 1
	}

	n := w1 - w2 - w4
	if n < 0 {
		n = 0
	}
	n = n/d + 1

	m := w0 - w3
	if m < 0 {
		m = 0
	}
	m /= d

	m2 := 2 * m
	e1 := m2 / 5
	e2 := m2 / 7

	nMin := e1 + 13
	if alt := e2 + 36; alt < nMin {
		nMin = alt
	}
	if n <= nMin {
		return 0.9
	}

	nMin = e1 + 19
	if alt := e2 + 57; alt < nMin {
		nMin = alt
	}
	if n <= nMin {
		return 1e-4
	}
	return 1e-6
}

// RiskOf returns the maintained confirmation-risk estimate for idx's
// pivot-chain height, if still tracked. Genesis is always fully confirmed.
func (in *Inner) RiskOf(idx int) (float64, bool) {
	if idx == in.genesisIndex {
		return 0, true
	}
	for _, e := range in.risks {
		if e.idx == idx {
			return e.risk, true
		}
	}
	return 0, false
}
